package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

type searchRestaurantsRequest struct {
	Query    string `json:"query" validate:"required,min=1,max=200"`
	Location string `json:"location" validate:"omitempty,max=200"`
}

func (s *Server) searchRestaurants(w http.ResponseWriter, r *http.Request) {
	var req searchRestaurantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	// Query parameters are accepted as an alternative to the JSON body.
	if req.Query == "" {
		req.Query = r.URL.Query().Get("query")
	}
	if req.Location == "" {
		req.Location = r.URL.Query().Get("location")
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	restaurants, err := s.searcher.Search(r.Context(), req.Query, req.Location)
	if err != nil {
		s.logger.Warn("restaurant search failed", zap.String("query", req.Query), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "restaurant search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"restaurants": restaurants,
		"count":       len(restaurants),
	})
}
