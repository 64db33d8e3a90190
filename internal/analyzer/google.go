package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
)

// Places API endpoints.
const (
	DefaultPlacesSearchEndpoint  = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	DefaultPlacesDetailsEndpoint = "https://maps.googleapis.com/maps/api/place/details/json"
)

// Places fetches the business profile for a restaurant from the Places API.
// Without an API key it returns a representative placeholder profile so a
// full scan still produces a complete document; the placeholder flag marks
// the bag as synthetic.
type Places struct {
	searchEndpoint  string
	detailsEndpoint string
	apiKey          string
	client          *http.Client
	clock           grader.Clock
	logger          *zap.Logger
}

// NewPlaces constructs the profile analyzer. Empty endpoints select the
// public Google API.
func NewPlaces(searchEndpoint, detailsEndpoint, apiKey string, timeout time.Duration, clock grader.Clock, logger *zap.Logger) *Places {
	if searchEndpoint == "" {
		searchEndpoint = DefaultPlacesSearchEndpoint
	}
	if detailsEndpoint == "" {
		detailsEndpoint = DefaultPlacesDetailsEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Places{
		searchEndpoint:  searchEndpoint,
		detailsEndpoint: detailsEndpoint,
		apiKey:          apiKey,
		client:          &http.Client{Timeout: timeout},
		clock:           clock,
		logger:          logger,
	}
}

type placesSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type placesDetailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name             string  `json:"name"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Website          string  `json:"website"`
		FormattedPhone   string  `json:"formatted_phone_number"`
		FormattedAddress string  `json:"formatted_address"`
		BusinessStatus   string  `json:"business_status"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		OpeningHours *struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
		EditorialSummary *struct {
			Overview string `json:"overview"`
		} `json:"editorial_summary"`
		Reviews []struct {
			Rating float64 `json:"rating"`
			Text   string  `json:"text"`
			Time   int64   `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
}

// Profile looks up the restaurant and returns its business-profile bag.
func (p *Places) Profile(ctx context.Context, restaurant grader.Restaurant) (grader.GoogleProfile, error) {
	stop := metrics.ObserveAnalyzer("google")
	defer stop()

	if p.apiKey == "" {
		p.logger.Debug("places api key not configured, returning placeholder profile",
			zap.String("restaurant", restaurant.Name))
		return p.placeholderProfile(), nil
	}

	placeID, err := p.search(ctx, restaurant)
	if err != nil {
		return grader.GoogleProfile{}, err
	}
	if placeID == "" {
		return grader.GoogleProfile{ProfileFound: false}, nil
	}
	return p.details(ctx, placeID)
}

func (p *Places) search(ctx context.Context, restaurant grader.Restaurant) (string, error) {
	query := restaurant.Name
	if restaurant.Address != "" {
		query += " " + restaurant.Address
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "restaurant")
	params.Set("key", p.apiKey)

	var payload placesSearchResponse
	if err := p.getJSON(ctx, p.searchEndpoint+"?"+params.Encode(), &payload); err != nil {
		return "", fmt.Errorf("places search: %w", err)
	}
	if payload.Status == "ZERO_RESULTS" || len(payload.Results) == 0 {
		return "", nil
	}
	if payload.Status != "OK" {
		return "", fmt.Errorf("places search returned status %s", payload.Status)
	}
	return payload.Results[0].PlaceID, nil
}

func (p *Places) details(ctx context.Context, placeID string) (grader.GoogleProfile, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,rating,user_ratings_total,website,formatted_phone_number,formatted_address,business_status,photos,opening_hours,editorial_summary,reviews")
	params.Set("key", p.apiKey)

	var payload placesDetailsResponse
	if err := p.getJSON(ctx, p.detailsEndpoint+"?"+params.Encode(), &payload); err != nil {
		return grader.GoogleProfile{}, fmt.Errorf("places details: %w", err)
	}
	if payload.Status != "OK" {
		return grader.GoogleProfile{}, fmt.Errorf("places details returned status %s", payload.Status)
	}

	result := payload.Result
	profile := grader.GoogleProfile{
		ProfileFound: true,
		Verified:     result.BusinessStatus == "OPERATIONAL",
		Name:         result.Name,
		Rating:       result.Rating,
		ReviewCount:  result.UserRatingsTotal,
		PhotosCount:  len(result.Photos),
		Completeness: profileCompleteness(payload),
	}
	for _, review := range result.Reviews {
		profile.Reviews = append(profile.Reviews, grader.Review{
			Rating: review.Rating,
			Text:   review.Text,
			Time:   time.Unix(review.Time, 0).UTC(),
		})
	}
	return profile, nil
}

// profileCompleteness scores how filled out the listing is on a 0-100 scale.
// Each populated field group contributes an equal share.
func profileCompleteness(result placesDetailsResponse) float64 {
	r := result.Result
	checks := []bool{
		r.Name != "",
		r.Website != "",
		r.FormattedPhone != "",
		r.FormattedAddress != "",
		len(r.Photos) > 0,
		r.OpeningHours != nil && len(r.OpeningHours.WeekdayText) > 0,
		r.EditorialSummary != nil && r.EditorialSummary.Overview != "",
	}
	filled := 0
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return float64(filled) / float64(len(checks)) * 100
}

func (p *Places) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("close places response body", zap.Error(closeErr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// placeholderProfile is the profile used when the Places API is not
// configured. The values match a typical well-maintained listing.
func (p *Places) placeholderProfile() grader.GoogleProfile {
	now := time.Now().UTC()
	if p.clock != nil {
		now = p.clock.Now().UTC()
	}
	return grader.GoogleProfile{
		ProfileFound:  true,
		Verified:      true,
		Rating:        4.2,
		ReviewCount:   150,
		PhotosCount:   12,
		Completeness:  85,
		ResponseRate:  80,
		PostsPerMonth: 4,
		Placeholder:   true,
		Reviews: []grader.Review{
			{Rating: 5, Text: "Great food and friendly staff.", Time: now.AddDate(0, 0, -7)},
			{Rating: 4, Text: "Solid menu, service was a bit slow.", Time: now.AddDate(0, 0, -21)},
			{Rating: 4, Text: "Nice atmosphere, fair prices.", Time: now.AddDate(0, 0, -45)},
		},
	}
}
