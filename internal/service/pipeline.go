package service

import (
	"context"
	"fmt"

	"healthscope/internal/logger"
	"healthscope/internal/metrics"
	"healthscope/internal/model"
)

const processedMIMEType = "image/jpeg"

// Analysis is the outcome of one upload.
type Analysis struct {
	ReportID   string
	Date       string
	Biomarkers []model.BiomarkerRecord
	Summary    string

	ExtractStatus model.ResultStatus
	SummaryStatus model.ResultStatus
	SaveStatus    model.ResultStatus
}

// Notice describes degraded stages for the dashboard, or "".
func (a Analysis) Notice() string {
	switch {
	case a.ExtractStatus == model.ResultFailed:
		return "We could not read the biomarker table from this image. Try a clearer photo."
	case a.ExtractStatus == model.ResultEmpty:
		return "No biomarkers were found in this image."
	case a.SummaryStatus == model.ResultFailed:
		return "The summary could not be generated right now."
	case a.SaveStatus == model.ResultFailed:
		return "This report could not be saved to your history."
	}
	return ""
}

type Pipeline struct {
	extractor  *Extractor
	summarizer *Summarizer
	reports    ReportStore
	metrics    *metrics.Collector
	maxPixels  int
}

func NewPipeline(extractor *Extractor, summarizer *Summarizer, reports ReportStore, m *metrics.Collector) *Pipeline {
	return &Pipeline{extractor: extractor, summarizer: summarizer, reports: reports, metrics: m, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels sets the decoded image size limit; n <= 0 keeps the default.
func (p *Pipeline) WithMaxPixels(n int) *Pipeline {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

// Analyze runs preprocess, extract, summarize and save. Only a preprocessing
// failure is returned as an error; later stages degrade.
func (p *Pipeline) Analyze(ctx context.Context, userID string, img []byte, mimeType, date string) (Analysis, error) {
	processed, err := PreprocessLimit(img, mimeType, p.maxPixels)
	if err != nil {
		p.observe("preprocess", model.ResultFailed)
		return Analysis{}, fmt.Errorf("preprocess: %w", err)
	}
	p.observe("preprocess", model.ResultOK)

	extracted := p.extractor.Extract(ctx, processed, processedMIMEType)
	p.observe("extract", extracted.Status)

	summary := p.summarizer.Summarize(ctx, extracted.Value)
	p.observe("summarize", summary.Status)

	saved := p.reports.Save(ctx, userID, extracted.Value, summary.Value, date)
	p.observe("save", saved.Status)

	logger.Info("analyze.done", "user_id", userID, "date", date,
		"biomarkers", len(extracted.Value), "extract", extracted.Status.String(),
		"summarize", summary.Status.String(), "save", saved.Status.String(), "report_id", saved.Value)

	return Analysis{
		ReportID:   saved.Value,
		Date:       date,
		Biomarkers: extracted.Value,
		Summary:    summary.Value,

		ExtractStatus: extracted.Status,
		SummaryStatus: summary.Status,
		SaveStatus:    saved.Status,
	}, nil
}

func (p *Pipeline) observe(stage string, status model.ResultStatus) {
	if p.metrics != nil {
		p.metrics.PipelineStages.WithLabelValues(stage, status.String()).Inc()
	}
}
