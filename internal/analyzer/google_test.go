package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func TestPlacesProfilePlaceholderWithoutKey(t *testing.T) {
	p := NewPlaces("", "", "", time.Second, fixedClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, zap.NewNop())

	profile, err := p.Profile(context.Background(), grader.Restaurant{Name: "Mario's Pizza"})
	require.NoError(t, err)
	require.True(t, profile.Placeholder)
	require.True(t, profile.ProfileFound)
	require.True(t, profile.Verified)
	require.Equal(t, 4.2, profile.Rating)
	require.Equal(t, 150, profile.ReviewCount)
	require.Len(t, profile.Reviews, 3)
	// Placeholder reviews are dated relative to the clock.
	require.Equal(t, time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC), profile.Reviews[0].Time)
}

func TestPlacesProfileLookup(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Query().Get("query"), "Mario's Pizza")
		require.Equal(t, "restaurant", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"place-123"}]}`))
	}))
	defer search.Close()

	details := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "place-123", r.URL.Query().Get("place_id"))
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"result": {
				"name": "Mario's Pizza",
				"rating": 4.6,
				"user_ratings_total": 321,
				"website": "https://marios.example.com",
				"formatted_phone_number": "(718) 555-0123",
				"formatted_address": "1 Main St, Brooklyn, NY",
				"business_status": "OPERATIONAL",
				"photos": [{"photo_reference": "ref1"}, {"photo_reference": "ref2"}],
				"opening_hours": {"weekday_text": ["Monday: 11-10"]},
				"reviews": [
					{"rating": 5, "text": "Great pizza", "time": 1717200000}
				]
			}
		}`))
	}))
	defer details.Close()

	p := NewPlaces(search.URL, details.URL, "key", time.Second, nil, zap.NewNop())
	profile, err := p.Profile(context.Background(), grader.Restaurant{Name: "Mario's Pizza", Address: "Brooklyn"})
	require.NoError(t, err)

	require.True(t, profile.ProfileFound)
	require.False(t, profile.Placeholder)
	require.True(t, profile.Verified)
	require.Equal(t, "Mario's Pizza", profile.Name)
	require.Equal(t, 4.6, profile.Rating)
	require.Equal(t, 321, profile.ReviewCount)
	require.Equal(t, 2, profile.PhotosCount)
	// 6 of 7 field groups populated (no editorial summary).
	require.InDelta(t, 6.0/7.0*100, profile.Completeness, 0.001)
	require.Len(t, profile.Reviews, 1)
	require.Equal(t, "Great pizza", profile.Reviews[0].Text)
	require.Equal(t, time.Unix(1717200000, 0).UTC(), profile.Reviews[0].Time)
}

func TestPlacesProfileZeroResults(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer search.Close()

	p := NewPlaces(search.URL, "https://unused.example.com", "key", time.Second, nil, zap.NewNop())
	profile, err := p.Profile(context.Background(), grader.Restaurant{Name: "Ghost Kitchen"})
	require.NoError(t, err)
	require.False(t, profile.ProfileFound)
}

func TestPlacesProfileSearchError(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","results":[{"place_id":"x"}]}`))
	}))
	defer search.Close()

	p := NewPlaces(search.URL, "https://unused.example.com", "key", time.Second, nil, zap.NewNop())
	_, err := p.Profile(context.Background(), grader.Restaurant{Name: "Mario's Pizza"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestPlacesProfileClosedBusinessNotVerified(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"p"}]}`))
	}))
	defer search.Close()
	details := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","result":{"name":"Closed Diner","business_status":"CLOSED_PERMANENTLY"}}`))
	}))
	defer details.Close()

	p := NewPlaces(search.URL, details.URL, "key", time.Second, nil, zap.NewNop())
	profile, err := p.Profile(context.Background(), grader.Restaurant{Name: "Closed Diner"})
	require.NoError(t, err)
	require.True(t, profile.ProfileFound)
	require.False(t, profile.Verified)
}
