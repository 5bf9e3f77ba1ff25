package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthscope/internal/logger"
	"healthscope/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStore persists analysed reports for a user.
type ReportStore interface {
	Save(ctx context.Context, userID string, biomarkers []model.BiomarkerRecord, summary, date string) model.Result[string]
	History(ctx context.Context, userID string) model.Result[[]model.Report]
	Get(ctx context.Context, userID, id string) model.Result[model.Report]
}

type ReportService struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

func NewReportService(db *gorm.DB, timeout time.Duration) *ReportService {
	return &ReportService{db: db, timeout: timeout, now: time.Now}
}

func (s *ReportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ReportService) Save(ctx context.Context, userID string, biomarkers []model.BiomarkerRecord, summary, date string) model.Result[string] {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if biomarkers == nil {
		biomarkers = []model.BiomarkerRecord{}
	}
	row := model.NewReportRow(uuid.NewString(), userID, biomarkers, summary, date, s.now())
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Error("report.save failed", "user_id", userID, "err", err)
		return model.Failed[string](fmt.Errorf("insert report: %w", err))
	}
	return model.OK(row.ID)
}

func historyQuery(db *gorm.DB, userID string) *gorm.DB {
	return db.Where("user_id = ?", userID).Order("report_date DESC")
}

func (s *ReportService) History(ctx context.Context, userID string) model.Result[[]model.Report] {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []model.ReportRow
	if err := historyQuery(s.db.WithContext(ctx), userID).Find(&rows).Error; err != nil {
		logger.Error("report.history failed", "user_id", userID, "err", err)
		return model.Failed[[]model.Report](fmt.Errorf("query reports: %w", err))
	}
	if len(rows) == 0 {
		return model.Empty[[]model.Report]()
	}
	reports := make([]model.Report, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, r.Report())
	}
	return model.OK(reports)
}

func (s *ReportService) Get(ctx context.Context, userID, id string) model.Result[model.Report] {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var row model.ReportRow
	err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Empty[model.Report]()
	}
	if err != nil {
		logger.Error("report.get failed", "user_id", userID, "id", id, "err", err)
		return model.Failed[model.Report](fmt.Errorf("query report: %w", err))
	}
	return model.OK(row.Report())
}

// Migrate creates or updates the reports table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.ReportRow{}); err != nil {
		return fmt.Errorf("migrate reports: %w", err)
	}
	return nil
}
