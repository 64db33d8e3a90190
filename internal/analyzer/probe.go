package analyzer

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Probe is a lightweight reachability check run before a site is handed to
// the browser. It answers one question: does the URL respond with a non-error
// status at all.
type Probe struct {
	cfg           ProbeConfig
	baseCollector *colly.Collector
}

// ProbeConfig controls collector behavior for the reachability check.
type ProbeConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// NewProbe builds a Probe.
func NewProbe(cfg ProbeConfig) *Probe {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	})
	return &Probe{cfg: cfg, baseCollector: c}
}

// Check visits the URL once and returns an error when it does not answer
// with a 2xx or 3xx status.
func (p *Probe) Check(ctx context.Context, target string) error {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		status   int
		probeErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		probeErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("reachability probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil && probeErr == nil {
			probeErr = err
		}
	}

	if probeErr != nil {
		return fmt.Errorf("website unreachable: %w", probeErr)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("website unreachable: status %d", status)
	}
	return nil
}
