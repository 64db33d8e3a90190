// Package search finds candidate restaurants for a query so a caller can
// pick one to scan.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// DefaultEndpoint is the Places text search endpoint.
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/place/textsearch/json"

// Service looks restaurants up by name and location. Without an API key it
// serves a small fixed candidate list so the flow works in development.
type Service struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// New constructs a search Service. An empty endpoint selects the public
// Google API.
func New(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Service {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string  `json:"name"`
		Website          string  `json:"website"`
		FormattedAddress string  `json:"formatted_address"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Types            []string `json:"types"`
	} `json:"results"`
}

// Search returns candidate restaurants ranked by relevance to the query.
func (s *Service) Search(ctx context.Context, query, location string) ([]grader.Restaurant, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	if s.apiKey == "" {
		s.logger.Debug("search api key not configured, returning fixture candidates",
			zap.String("query", query))
		return rankCandidates(fixtureCandidates(location), query), nil
	}

	fullQuery := query + " restaurant"
	if location != "" {
		fullQuery += " in " + location
	}
	params := url.Values{}
	params.Set("query", fullQuery)
	params.Set("type", "restaurant")
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("close search response body", zap.Error(closeErr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var payload textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("search returned status %s", payload.Status)
	}

	candidates := make([]grader.Restaurant, 0, len(payload.Results))
	for _, result := range payload.Results {
		candidates = append(candidates, grader.Restaurant{
			Name:        result.Name,
			Website:     result.Website,
			Address:     result.FormattedAddress,
			Category:    primaryCategory(result.Types),
			Rating:      result.Rating,
			ReviewCount: result.UserRatingsTotal,
		})
	}
	return rankCandidates(candidates, query), nil
}

// rankCandidates scores, dedupes, and sorts candidates, best match first.
func rankCandidates(candidates []grader.Restaurant, query string) []grader.Restaurant {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]grader.Restaurant, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.Name) + "|" + strings.ToLower(c.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.Relevance = relevance(c, query)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
	return out
}

// relevance weights name match heaviest, then rating and review volume.
func relevance(c grader.Restaurant, query string) float64 {
	name := strings.ToLower(c.Name)
	q := strings.ToLower(query)

	var score float64
	switch {
	case name == q:
		score = 60
	case strings.Contains(name, q):
		score = 45
	default:
		for _, word := range strings.Fields(q) {
			if strings.Contains(name, word) {
				score += 15
			}
		}
		if score > 45 {
			score = 45
		}
	}
	score += c.Rating * 4
	reviews := float64(c.ReviewCount) * 0.02
	if reviews > 20 {
		reviews = 20
	}
	return score + reviews
}

func primaryCategory(types []string) string {
	for _, t := range types {
		if t != "point_of_interest" && t != "establishment" && t != "food" {
			return t
		}
	}
	return "restaurant"
}

// fixtureCandidates is the development candidate list used when no API key
// is configured.
func fixtureCandidates(location string) []grader.Restaurant {
	if location == "" {
		location = "Springfield"
	}
	return []grader.Restaurant{
		{
			Name:        "Mario's Pizza",
			Website:     "https://marios-pizza.example.com",
			Address:     "123 Main St, " + location,
			Category:    "italian_restaurant",
			Rating:      4.5,
			ReviewCount: 230,
		},
		{
			Name:        "Golden Dragon",
			Website:     "https://golden-dragon.example.com",
			Address:     "456 Oak Ave, " + location,
			Category:    "chinese_restaurant",
			Rating:      4.2,
			ReviewCount: 180,
		},
		{
			Name:        "The Corner Bistro",
			Website:     "https://corner-bistro.example.com",
			Address:     "789 Elm St, " + location,
			Category:    "french_restaurant",
			Rating:      4.7,
			ReviewCount: 95,
		},
	}
}
