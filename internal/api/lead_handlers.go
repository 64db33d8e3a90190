package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

type createLeadRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"omitempty,max=200"`
	RestaurantName string `json:"restaurant_name" validate:"omitempty,max=200"`
	Phone          string `json:"phone" validate:"omitempty,max=40"`
	Source         string `json:"source" validate:"omitempty,max=100"`
	ScanID         string `json:"associated_scan_id" validate:"omitempty,max=100"`
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	leadID, err := s.idGen.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "generate lead id failed")
		return
	}
	lead := grader.Lead{
		ID:             leadID,
		Email:          req.Email,
		Name:           req.Name,
		RestaurantName: req.RestaurantName,
		Phone:          req.Phone,
		Source:         req.Source,
		Status:         grader.LeadStatusNew,
		ScanID:         req.ScanID,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.leads.CreateLead(r.Context(), lead); err != nil {
		if errors.Is(err, grader.ErrLeadExists) {
			s.writeError(w, http.StatusConflict, "a lead with this email already exists")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "create lead failed")
		return
	}
	s.writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "lead_id")
	lead, err := s.leads.GetLead(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, grader.ErrLeadNotFound) {
			s.writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch lead")
		return
	}
	s.writeJSON(w, http.StatusOK, lead)
}

type updateLeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) updateLeadStatus(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "lead_id")
	var req updateLeadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	status := grader.LeadStatus(req.Status)
	if !validLeadStatus(status) {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	if err := s.leads.UpdateLeadStatus(r.Context(), leadID, status); err != nil {
		if errors.Is(err, grader.ErrLeadNotFound) {
			s.writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "update lead failed")
		return
	}
	lead, err := s.leads.GetLead(r.Context(), leadID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch lead")
		return
	}
	s.writeJSON(w, http.StatusOK, lead)
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	status := grader.LeadStatus(r.URL.Query().Get("status"))
	if status != "" && !validLeadStatus(status) {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown status %q", status))
		return
	}
	leads, err := s.leads.ListLeads(r.Context(), status, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
	})
}

func validLeadStatus(status grader.LeadStatus) bool {
	switch status {
	case grader.LeadStatusNew, grader.LeadStatusContacted, grader.LeadStatusQualified,
		grader.LeadStatusConverted, grader.LeadStatusUnqualified:
		return true
	}
	return false
}
