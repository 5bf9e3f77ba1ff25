package model

import "time"

const (
	StatusHigh   = "High"
	StatusLow    = "Low"
	StatusNormal = "Normal"
)

// BiomarkerRecord is one row of a blood test result.
type BiomarkerRecord struct {
	TestName string `json:"test_name" validate:"required"`
	Result   string `json:"result"`
	Unit     string `json:"unit"`
	RefRange string `json:"ref_range"`
	Status   string `json:"status" validate:"oneof=High Low Normal"`
}

func (b BiomarkerRecord) Abnormal() bool {
	return b.Status == StatusHigh || b.Status == StatusLow
}

type Report struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Date       string            `json:"date"`
	CreatedAt  time.Time         `json:"created_at"`
	Summary    string            `json:"summary"`
	Biomarkers []BiomarkerRecord `json:"biomarkers"`
	Status     string            `json:"status"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type SearchResponse struct {
	Query   string `json:"query"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}
