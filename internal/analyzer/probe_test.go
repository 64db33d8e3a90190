package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbeCheckReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := NewProbe(ProbeConfig{Timeout: 5 * time.Second})
	require.NoError(t, p.Check(context.Background(), srv.URL))
}

func TestProbeCheckErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProbe(ProbeConfig{Timeout: 5 * time.Second})
	err := p.Check(context.Background(), srv.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "website unreachable")
}

func TestProbeCheckConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p := NewProbe(ProbeConfig{Timeout: 2 * time.Second})
	err := p.Check(context.Background(), srv.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "website unreachable")
}

func TestProbeCheckSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	p := NewProbe(ProbeConfig{UserAgent: "restaurant-grader-bot/0.1", Timeout: 5 * time.Second})
	require.NoError(t, p.Check(context.Background(), srv.URL))
	require.Equal(t, "restaurant-grader-bot/0.1", gotUA)
}
