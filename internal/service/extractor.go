package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"healthscope/internal/logger"
	"healthscope/internal/model"

	"github.com/go-playground/validator/v10"
)

const extractionPrompt = `You are an expert medical OCR assistant.
Extract the blood test table from this image.

Return a JSON list. Each item must have:
- test_name (string)
- result (string)
- unit (string)
- ref_range (string)
- status (string: 'High', 'Low', or 'Normal')

Crucial: If the image has no explicit flag, compare Result vs Range to determine status.`

const rawPrefixLen = 200

var errSchemaMismatch = errors.New("response does not match the biomarker schema")

type Extractor struct {
	ai       Generator
	model    string
	validate *validator.Validate
}

func NewExtractor(ai Generator, model string) *Extractor {
	return &Extractor{ai: ai, model: model, validate: validator.New()}
}

// Extract sends a preprocessed report image to the vision model and parses
// the biomarker table it returns.
func (e *Extractor) Extract(ctx context.Context, img []byte, mimeType string) model.Result[[]model.BiomarkerRecord] {
	text, err := e.ai.Generate(ctx, Prompt{
		Model:         e.model,
		Messages:      []Message{{Role: "user", Text: extractionPrompt}},
		Image:         img,
		ImageMIMEType: mimeType,
	})
	if err != nil {
		logger.Error("extract.model failed", "err", err)
		return model.Failed[[]model.BiomarkerRecord](fmt.Errorf("extraction model: %w", err))
	}

	records, err := e.parse(text)
	if err != nil {
		logger.Error("extract.parse failed", "err", err, "raw", logger.Prefix(text, rawPrefixLen))
		return model.Failed[[]model.BiomarkerRecord](err)
	}
	if len(records) == 0 {
		return model.Empty[[]model.BiomarkerRecord]()
	}
	return model.OK(records)
}

func (e *Extractor) parse(text string) ([]model.BiomarkerRecord, error) {
	raw, err := decodeBiomarkers(text)
	if err != nil {
		return nil, err
	}

	records := make([]model.BiomarkerRecord, 0, len(raw))
	for i, r := range raw {
		rec := r.normalize()
		if err := e.validate.Struct(rec); err != nil {
			logger.Warn("extract.record dropped", "index", i, "test_name", rec.TestName, "err", err)
			continue
		}
		records = append(records, rec)
	}
	if len(raw) > 0 && len(records) == 0 {
		return nil, errSchemaMismatch
	}
	return records, nil
}

// StripCodeFence removes Markdown code fences the model wraps JSON in.
func StripCodeFence(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func decodeBiomarkers(text string) ([]rawBiomarker, error) {
	cleaned := StripCodeFence(text)
	out, err := decodeList([]byte(cleaned))
	if err == nil {
		return out, nil
	}
	start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		if out, err2 := decodeList([]byte(cleaned[start : end+1])); err2 == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("parse model response: %w", err)
}

func decodeList(data []byte) ([]rawBiomarker, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		for _, key := range []string{"biomarkers", "results", "tests"} {
			if inner, ok := wrapped[key]; ok {
				data = inner
				break
			}
		}
	}
	var out []rawBiomarker
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// looseString accepts JSON strings, numbers and null.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*s = looseString(b)
	default:
		return fmt.Errorf("%w: unexpected value %s", errSchemaMismatch, b)
	}
	return nil
}

type rawBiomarker struct {
	TestName looseString `json:"test_name"`
	Result   looseString `json:"result"`
	Unit     looseString `json:"unit"`
	RefRange looseString `json:"ref_range"`
	Status   looseString `json:"status"`
}

func (r rawBiomarker) normalize() model.BiomarkerRecord {
	rec := model.BiomarkerRecord{
		TestName: strings.TrimSpace(string(r.TestName)),
		Result:   strings.TrimSpace(string(r.Result)),
		Unit:     strings.TrimSpace(string(r.Unit)),
		RefRange: strings.TrimSpace(string(r.RefRange)),
	}
	rec.Status = NormalizeStatus(string(r.Status))
	if rec.Status == "" {
		rec.Status = InferStatus(rec.Result, rec.RefRange)
	}
	return rec
}

// NormalizeStatus maps model status spellings to High, Low or Normal, and
// returns "" for anything else.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "h", "hi", "elevated", "above":
		return model.StatusHigh
	case "low", "l", "lo", "below", "decreased":
		return model.StatusLow
	case "normal", "n", "within range", "ok":
		return model.StatusNormal
	}
	return ""
}

// InferStatus compares a numeric result with a reference range such as
// "13.0-17.0", "< 200", ">=40" or "up to 5". Anything unparseable is Normal.
func InferStatus(result, refRange string) string {
	v, ok := leadingNumber(result)
	if !ok {
		return model.StatusNormal
	}
	rr := strings.ToLower(strings.TrimSpace(refRange))

	switch {
	case strings.HasPrefix(rr, "<="), strings.HasPrefix(rr, "<"), strings.HasPrefix(rr, "up to"):
		hi, ok := leadingNumber(strings.TrimLeft(strings.TrimPrefix(rr, "up to"), "<= "))
		if ok && v > hi {
			return model.StatusHigh
		}
		return model.StatusNormal
	case strings.HasPrefix(rr, ">="), strings.HasPrefix(rr, ">"):
		lo, ok := leadingNumber(strings.TrimLeft(rr, ">= "))
		if ok && v < lo {
			return model.StatusLow
		}
		return model.StatusNormal
	}

	lo, hi, ok := parseRange(rr)
	if !ok {
		return model.StatusNormal
	}
	switch {
	case v < lo:
		return model.StatusLow
	case v > hi:
		return model.StatusHigh
	}
	return model.StatusNormal
}

func parseRange(rr string) (lo, hi float64, ok bool) {
	for _, sep := range []string{" - ", "-", "–", " to "} {
		// skip a leading minus sign of the lower bound
		idx := strings.Index(rr[min(1, len(rr)):], sep)
		if idx < 0 {
			continue
		}
		idx += min(1, len(rr))
		lo, ok1 := leadingNumber(rr[:idx])
		hi, ok2 := leadingNumber(rr[idx+len(sep):])
		if ok1 && ok2 && lo <= hi {
			return lo, hi, true
		}
	}
	return 0, 0, false
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
