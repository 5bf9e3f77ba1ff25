package service

import (
	"context"
	"encoding/json"
	"fmt"

	"healthscope/internal/logger"
	"healthscope/internal/model"
)

const summaryPromptTemplate = `You are an empathetic Health Coach. Your primary role is to calm the patient while delivering clear, actionable information.

TASK: Analyze these abnormal blood results: %s

OUTPUT FORMAT (Strictly follow this concise, scannable structure):

### Health Snapshot
[Write a supportive, reassuring sentence about their overall status. Do not cause panic.]

---

### Key Focus Areas
* **[Metric Name]:** [Simple 5-word explanation of impact.]
* (List only top 3 critical abnormalities)

---

### Quick Action Plan
* **[Food 1]** (Why it helps)
* **[Food 2]** (Why it helps)
* **[Food 3]** (Why it helps)

CONSTRAINTS: Total response must be short, easily scannable, and avoid complex medical jargon.`

type Summarizer struct {
	ai    Generator
	model string
}

func NewSummarizer(ai Generator, model string) *Summarizer {
	return &Summarizer{ai: ai, model: model}
}

// Abnormal keeps the High and Low records, in order.
func Abnormal(records []model.BiomarkerRecord) []model.BiomarkerRecord {
	out := make([]model.BiomarkerRecord, 0, len(records))
	for _, r := range records {
		if r.Abnormal() {
			out = append(out, r)
		}
	}
	return out
}

// Summarize asks the text model for a markdown health summary of the
// abnormal records. A failed result still carries a displayable Value.
func (s *Summarizer) Summarize(ctx context.Context, records []model.BiomarkerRecord) model.Result[string] {
	abnormal := Abnormal(records)
	payload, err := json.Marshal(abnormal)
	if err != nil {
		return s.failed(fmt.Errorf("encode biomarkers: %w", err))
	}

	text, err := s.ai.Generate(ctx, Prompt{
		Model:    s.model,
		Messages: []Message{{Role: "user", Text: fmt.Sprintf(summaryPromptTemplate, payload)}},
	})
	if err != nil {
		logger.Error("summarize.model failed", "err", err, "abnormal", len(abnormal))
		return s.failed(err)
	}
	return model.OK(text)
}

func (s *Summarizer) failed(err error) model.Result[string] {
	r := model.Failed[string](err)
	r.Value = "Analysis Error: " + err.Error()
	return r
}
