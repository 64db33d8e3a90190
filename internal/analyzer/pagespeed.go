package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultPageSpeedEndpoint is the Google PageSpeed Insights v5 endpoint.
const DefaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// PageSpeedResult holds the Lighthouse category scores on a 0-100 scale.
type PageSpeedResult struct {
	Performance   float64
	Accessibility float64
	BestPractices float64
	SEO           float64
	InteractiveMs int64
}

// PageSpeedClient calls the PageSpeed Insights API.
type PageSpeedClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewPageSpeedClient constructs a client. An empty endpoint selects the
// public Google API.
func NewPageSpeedClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *PageSpeedClient {
	if endpoint == "" {
		endpoint = DefaultPageSpeedEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageSpeedClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type pagespeedResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

// Run analyzes the target URL with the mobile or desktop strategy.
func (c *PageSpeedClient) Run(ctx context.Context, target string, mobile bool) (PageSpeedResult, error) {
	strategy := "DESKTOP"
	if mobile {
		strategy = "MOBILE"
	}
	params := url.Values{}
	params.Set("url", target)
	params.Set("strategy", strategy)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return PageSpeedResult{}, fmt.Errorf("build pagespeed request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return PageSpeedResult{}, fmt.Errorf("pagespeed request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("close pagespeed response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return PageSpeedResult{}, fmt.Errorf("pagespeed returned status %d", resp.StatusCode)
	}

	var payload pagespeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PageSpeedResult{}, fmt.Errorf("decode pagespeed response: %w", err)
	}

	categories := payload.LighthouseResult.Categories
	result := PageSpeedResult{
		Performance:   categories["performance"].Score * 100,
		Accessibility: categories["accessibility"].Score * 100,
		BestPractices: categories["best-practices"].Score * 100,
		SEO:           categories["seo"].Score * 100,
	}
	if interactive, ok := payload.LighthouseResult.Audits["interactive"]; ok {
		result.InteractiveMs = int64(interactive.NumericValue)
	}
	return result, nil
}
