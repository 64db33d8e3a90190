// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// ScanStore keeps scan documents in a map guarded by a RWMutex.
type ScanStore struct {
	mu    sync.RWMutex
	scans map[string]grader.Scan
	clock grader.Clock
}

// NewScanStore constructs a ScanStore. A nil clock falls back to time.Now.
func NewScanStore(clock grader.Clock) *ScanStore {
	return &ScanStore{
		scans: make(map[string]grader.Scan),
		clock: clock,
	}
}

func (s *ScanStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateScan stores a new scan in pending status.
func (s *ScanStore) CreateScan(_ context.Context, scan grader.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scans[scan.ID]; exists {
		return grader.ErrScanExists
	}
	s.scans[scan.ID] = scan
	return nil
}

// UpdateScanStatus moves a scan through its lifecycle. Entering in_progress
// stamps StartedAt once; entering a terminal state stamps CompletedAt.
func (s *ScanStore) UpdateScanStatus(_ context.Context, scanID string, status grader.ScanStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[scanID]
	if !ok {
		return grader.ErrScanNotFound
	}
	scan.Status = status
	scan.ErrorText = errText
	now := s.now()
	if status == grader.ScanStatusInProgress && scan.StartedAt == nil {
		scan.StartedAt = pointerTime(now)
	}
	if status.Terminal() {
		scan.CompletedAt = pointerTime(now)
	}
	s.scans[scanID] = scan
	return nil
}

// SaveScanResults attaches the score document and marks the scan completed.
// The top-level score fields mirror the nested breakdown.
func (s *ScanStore) SaveScanResults(
	_ context.Context,
	scanID string,
	results grader.ScoreBreakdown,
	analysis grader.AnalysisData,
	recs []grader.Recommendation,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[scanID]
	if !ok {
		return grader.ErrScanNotFound
	}
	scan.Status = grader.ScanStatusCompleted
	scan.OverallScore = results.OverallScore
	scan.LetterGrade = results.LetterGrade
	scan.Results = &results
	scan.Analysis = &analysis
	scan.Recommendations = recs
	scan.ErrorText = ""
	scan.CompletedAt = pointerTime(s.now())
	s.scans[scanID] = scan
	return nil
}

// GetScan fetches a scan by ID.
func (s *ScanStore) GetScan(_ context.Context, scanID string) (grader.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scan, ok := s.scans[scanID]
	if !ok {
		return grader.Scan{}, grader.ErrScanNotFound
	}
	return scan, nil
}

// ListScans returns scans newest first, optionally filtered by status.
func (s *ScanStore) ListScans(_ context.Context, filter grader.ScanFilter) ([]grader.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]grader.Scan, 0, len(s.scans))
	for _, scan := range s.scans {
		if filter.Status != "" && scan.Status != filter.Status {
			continue
		}
		out = append(out, scan)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []grader.Scan{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
