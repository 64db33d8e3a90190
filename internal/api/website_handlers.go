package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/scoring"
)

type analyzeWebsiteRequest struct {
	URL string `json:"url" validate:"required"`
}

// analyzeWebsite runs a synchronous website-only analysis. Unlike full scans
// the caller waits for the result; a scan document is still persisted so the
// analysis can be fetched again later.
func (s *Server) analyzeWebsite(w http.ResponseWriter, r *http.Request) {
	var req analyzeWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	target, err := grader.NormalizeURL(req.URL)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.availability.Check(r.Context(), target); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	scanID, err := s.idGen.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "generate scan id failed")
		return
	}
	scan := grader.Scan{
		ID:        scanID,
		Type:      grader.ScanTypeWebsiteOnly,
		URL:       target,
		Status:    grader.ScanStatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.scans.CreateScan(r.Context(), scan); err != nil {
		s.writeError(w, http.StatusInternalServerError, "create scan failed")
		return
	}
	if err := s.scans.UpdateScanStatus(r.Context(), scanID, grader.ScanStatusInProgress, ""); err != nil {
		s.writeError(w, http.StatusInternalServerError, "update scan failed")
		return
	}

	analysisCtx, cancel := context.WithTimeout(r.Context(), s.cfg.ScanTimeout())
	defer cancel()

	bag, err := s.website.Analyze(analysisCtx, target)
	if err != nil {
		s.failWebsiteScan(r.Context(), scanID, err)
		if errors.Is(err, context.DeadlineExceeded) || analysisCtx.Err() != nil {
			s.writeError(w, http.StatusInternalServerError, "website analysis timed out")
			return
		}
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("website analysis failed: %v", err))
		return
	}
	if bag.Empty() {
		err := fmt.Errorf("website analysis returned no data for %s", target)
		s.failWebsiteScan(r.Context(), scanID, err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scorer := scoring.New(s.clock)
	score := scorer.WebsiteScore(bag)
	results := grader.ScoreBreakdown{
		OverallScore:   score,
		LetterGrade:    scoring.LetterGrade(score),
		CategoryScores: map[string]float64{"website": score},
		WeightedScores: map[string]float64{"website": score},
	}
	analysis := grader.AnalysisData{Website: &bag}
	recs := scoring.Recommendations(bag)

	if err := s.scans.SaveScanResults(r.Context(), scanID, results, analysis, recs); err != nil {
		s.writeError(w, http.StatusInternalServerError, "persist analysis failed")
		return
	}

	saved, err := s.scans.GetScan(r.Context(), scanID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "fetch analysis failed")
		return
	}
	s.writeJSON(w, http.StatusOK, websiteAnalysisResponse{
		Scan:         saved,
		WebsiteScore: score,
	})
}

// websiteAnalysisResponse flattens the website category score next to the
// scan document for website-only clients.
type websiteAnalysisResponse struct {
	grader.Scan
	WebsiteScore float64 `json:"website_score"`
}

// failWebsiteScan records the failure even when the request context is gone.
func (s *Server) failWebsiteScan(ctx context.Context, scanID string, cause error) {
	s.logger.Warn("website analysis failed", zap.String("scan_id", scanID), zap.Error(cause))
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.scans.UpdateScanStatus(updateCtx, scanID, grader.ScanStatusFailed, cause.Error()); err != nil {
		s.logger.Error("fail website scan status update", zap.String("scan_id", scanID), zap.Error(err))
	}
}

// getWebsiteAnalysis fetches a previously run website-only analysis.
func (s *Server) getWebsiteAnalysis(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scan_id")
	scan, err := s.scans.GetScan(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, grader.ErrScanNotFound) {
			s.writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch scan")
		return
	}
	if scan.Type != grader.ScanTypeWebsiteOnly {
		s.writeError(w, http.StatusBadRequest, "scan is not a website analysis")
		return
	}
	s.writeJSON(w, http.StatusOK, scan)
}
