package model

import (
	"time"

	"gorm.io/datatypes"
)

const ReportStatusAnalyzed = "Analyzed"

// ReportRow is the persisted form of a Report.
type ReportRow struct {
	ID         string                                `gorm:"primaryKey;size:36" json:"id"`
	UserID     string                                `gorm:"size:64;index:idx_user_date,priority:1" json:"user_id"`
	ReportDate string                                `gorm:"size:32;index:idx_user_date,priority:2" json:"date"`
	Summary    string                                `gorm:"type:text" json:"summary"`
	Biomarkers datatypes.JSONType[[]BiomarkerRecord] `json:"biomarkers"`
	Status     string                                `gorm:"size:32" json:"status"`
	CreatedAt  time.Time                             `json:"created_at"`
}

func (ReportRow) TableName() string { return "reports" }

func (r ReportRow) Report() Report {
	biomarkers := r.Biomarkers.Data()
	if biomarkers == nil {
		biomarkers = []BiomarkerRecord{}
	}
	return Report{
		ID:         r.ID,
		UserID:     r.UserID,
		Date:       r.ReportDate,
		CreatedAt:  r.CreatedAt,
		Summary:    r.Summary,
		Biomarkers: biomarkers,
		Status:     r.Status,
	}
}

func NewReportRow(id, userID string, biomarkers []BiomarkerRecord, summary, date string, now time.Time) ReportRow {
	return ReportRow{
		ID:         id,
		UserID:     userID,
		ReportDate: date,
		Summary:    summary,
		Biomarkers: datatypes.NewJSONType(biomarkers),
		Status:     ReportStatusAnalyzed,
		CreatedAt:  now,
	}
}
