package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"healthscope/internal/metrics"
	"healthscope/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routeGenerator answers by model name so one fake can serve both stages.
type routeGenerator struct {
	byModel map[string]string
	errs    map[string]error
	prompts []Prompt
}

func (g *routeGenerator) Generate(_ context.Context, p Prompt) (string, error) {
	g.prompts = append(g.prompts, p)
	if err := g.errs[p.Model]; err != nil {
		return "", err
	}
	return g.byModel[p.Model], nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type failingStore struct{ *MemoryReportStore }

func (failingStore) Save(context.Context, string, []model.BiomarkerRecord, string, string) model.Result[string] {
	return model.Failed[string](errors.New("db down"))
}

func newTestPipeline(gen Generator, store ReportStore) *Pipeline {
	return NewPipeline(NewExtractor(gen, "vision"), NewSummarizer(gen, "text"), store, metrics.NewCollector("test"))
}

func TestAnalyzeHappyPath(t *testing.T) {
	gen := &routeGenerator{byModel: map[string]string{
		"vision": `[{"test_name":"Hemoglobin","result":"11","unit":"g/dL","ref_range":"13-17","status":"Low"}]`,
		"text":   "### Health Snapshot",
	}}
	store := NewMemoryReportStore()

	a, err := newTestPipeline(gen, store).Analyze(context.Background(), "u", pngBytes(t), "image/png", "2024-03-05")
	require.NoError(t, err)

	assert.Equal(t, model.ResultOK, a.ExtractStatus)
	assert.Equal(t, model.ResultOK, a.SummaryStatus)
	assert.Equal(t, model.ResultOK, a.SaveStatus)
	assert.Equal(t, "### Health Snapshot", a.Summary)
	assert.Empty(t, a.Notice())
	require.Len(t, a.Biomarkers, 1)

	require.Len(t, gen.prompts, 2)
	assert.Equal(t, processedMIMEType, gen.prompts[0].ImageMIMEType)

	hist := store.History(context.Background(), "u")
	require.True(t, hist.IsOK())
	assert.Equal(t, a.ReportID, hist.Value[0].ID)
}

func TestAnalyzeExtractionFailureStillSummarizesAndSaves(t *testing.T) {
	gen := &routeGenerator{
		byModel: map[string]string{"vision": "I cannot read this", "text": "Looks fine."},
	}
	store := NewMemoryReportStore()

	a, err := newTestPipeline(gen, store).Analyze(context.Background(), "u", pngBytes(t), "image/png", "2024-03-05")
	require.NoError(t, err)

	assert.Equal(t, model.ResultFailed, a.ExtractStatus)
	assert.Empty(t, a.Biomarkers)
	assert.Equal(t, model.ResultOK, a.SummaryStatus)
	assert.Contains(t, a.Notice(), "could not read")
	assert.Contains(t, gen.prompts[1].Messages[0].Text, ": []")
	assert.True(t, store.History(context.Background(), "u").IsOK())
}

func TestAnalyzeSummaryAndSaveFailures(t *testing.T) {
	gen := &routeGenerator{
		byModel: map[string]string{"vision": "[]"},
		errs:    map[string]error{"text": errors.New("overloaded")},
	}

	a, err := newTestPipeline(gen, failingStore{NewMemoryReportStore()}).
		Analyze(context.Background(), "u", pngBytes(t), "image/png", "2024-03-05")
	require.NoError(t, err)

	assert.Equal(t, model.ResultEmpty, a.ExtractStatus)
	assert.Equal(t, model.ResultFailed, a.SummaryStatus)
	assert.Contains(t, a.Summary, "Analysis Error: overloaded")
	assert.Equal(t, model.ResultFailed, a.SaveStatus)
	assert.Empty(t, a.ReportID)
	assert.Equal(t, "No biomarkers were found in this image.", a.Notice())
}

func TestAnalyzeRejectsNonImage(t *testing.T) {
	gen := &routeGenerator{}
	_, err := newTestPipeline(gen, NewMemoryReportStore()).
		Analyze(context.Background(), "u", []byte("hello"), "text/plain", "2024-03-05")
	require.Error(t, err)
	assert.Empty(t, gen.prompts)
}
