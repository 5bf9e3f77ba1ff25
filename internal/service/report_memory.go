package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"healthscope/internal/model"

	"github.com/google/uuid"
)

// MemoryReportStore keeps reports in process. Used for development runs
// without a database and in tests.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string][]model.Report
	now     func() time.Time
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: map[string][]model.Report{}, now: time.Now}
}

func (s *MemoryReportStore) Save(_ context.Context, userID string, biomarkers []model.BiomarkerRecord, summary, date string) model.Result[string] {
	r := model.Report{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       date,
		CreatedAt:  s.now(),
		Summary:    summary,
		Biomarkers: slices.Clone(biomarkers),
		Status:     model.ReportStatusAnalyzed,
	}
	if r.Biomarkers == nil {
		r.Biomarkers = []model.BiomarkerRecord{}
	}

	s.mu.Lock()
	s.reports[userID] = append(s.reports[userID], r)
	s.mu.Unlock()
	return model.OK(r.ID)
}

// History orders by date descending; equal dates list the newest save first.
func (s *MemoryReportStore) History(_ context.Context, userID string) model.Result[[]model.Report] {
	s.mu.RLock()
	stored := s.reports[userID]
	out := make([]model.Report, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, cloneReport(stored[i]))
	}
	s.mu.RUnlock()

	if len(out) == 0 {
		return model.Empty[[]model.Report]()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return model.OK(out)
}

func (s *MemoryReportStore) Get(_ context.Context, userID, id string) model.Result[model.Report] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports[userID] {
		if r.ID == id {
			return model.OK(cloneReport(r))
		}
	}
	return model.Empty[model.Report]()
}

func cloneReport(r model.Report) model.Report {
	r.Biomarkers = slices.Clone(r.Biomarkers)
	return r
}
