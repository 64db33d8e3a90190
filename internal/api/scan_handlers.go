package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

type createScanRequest struct {
	RestaurantName string `json:"restaurant_name" validate:"required,min=1,max=200"`
	Website        string `json:"restaurant_website" validate:"required"`
	Address        string `json:"address" validate:"omitempty,max=300"`
}

// createScan validates the target, persists a pending scan, and queues it for
// the worker pool.
func (s *Server) createScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	website, err := grader.NormalizeURL(req.Website)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	scanID, err := s.enqueueScan(r.Context(), grader.Restaurant{
		Name:    req.RestaurantName,
		Website: website,
		Address: req.Address,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"scan_id": scanID,
		"status":  string(grader.ScanStatusPending),
		"message": "scan queued, poll the scan endpoint for results",
	})
}

func (s *Server) enqueueScan(ctx context.Context, restaurant grader.Restaurant) (string, error) {
	scanID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate scan id: %w", err)
	}
	now := s.clock.Now()
	scan := grader.Scan{
		ID:                scanID,
		Type:              grader.ScanTypeFull,
		RestaurantName:    restaurant.Name,
		RestaurantWebsite: restaurant.Website,
		Status:            grader.ScanStatusPending,
		CreatedAt:         now,
	}
	if err := s.scans.CreateScan(ctx, scan); err != nil {
		return "", fmt.Errorf("create scan: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := grader.ScanItem{
		ScanID:     scanID,
		Restaurant: restaurant,
		Submitted:  now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		return "", fmt.Errorf("enqueue scan: %w", err)
	}
	return scanID, nil
}

// getScan returns the scan document. Clients poll this until the status is
// terminal.
func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
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
	s.writeJSON(w, http.StatusOK, scan)
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	filter := grader.ScanFilter{
		Status: grader.ScanStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	switch filter.Status {
	case "", grader.ScanStatusPending, grader.ScanStatusInProgress,
		grader.ScanStatusCompleted, grader.ScanStatusFailed:
	default:
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}

	scans, err := s.scans.ListScans(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"scans": scans,
		"count": len(scans),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
