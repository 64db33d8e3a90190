package analyzer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/browser"
	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
)

// Website analyzes a site with the headless browser and the PageSpeed API.
// The two calls run concurrently and are merged into one flat bag. A
// PageSpeed failure degrades the bag (no composite scores); a browser failure
// fails the analysis outright.
type Website struct {
	pagespeed *PageSpeedClient
	browser   *browser.Manager
	evidence  grader.BlobStore
	logger    *zap.Logger
}

// NewWebsite constructs the website analyzer. evidence may be nil to skip
// screenshot capture.
func NewWebsite(pagespeed *PageSpeedClient, mgr *browser.Manager, evidence grader.BlobStore, logger *zap.Logger) *Website {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Website{
		pagespeed: pagespeed,
		browser:   mgr,
		evidence:  evidence,
		logger:    logger,
	}
}

// Analyze inspects the target URL and returns the merged website bag.
func (a *Website) Analyze(ctx context.Context, target string) (grader.WebsiteAnalysis, error) {
	stop := metrics.ObserveAnalyzer("website")
	defer stop()

	var (
		wg      sync.WaitGroup
		psRes   PageSpeedResult
		psErr   error
		snap    pageSnapshot
		snapErr error
	)

	if a.pagespeed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			psRes, psErr = a.pagespeed.Run(ctx, target, true)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		vw, vh := a.browser.Viewport()
		snapErr = a.browser.WithPage(ctx, func(pageCtx context.Context) error {
			var err error
			snap, err = capturePage(pageCtx, target, vw, vh, a.evidence != nil)
			return err
		})
	}()

	wg.Wait()

	if snapErr != nil {
		return grader.WebsiteAnalysis{}, snapErr
	}

	analysis, err := inspectSnapshot(target, snap)
	if err != nil {
		return grader.WebsiteAnalysis{}, err
	}

	if psErr != nil {
		a.logger.Warn("pagespeed analysis failed, continuing without it",
			zap.String("url", target), zap.Error(psErr))
	} else if a.pagespeed != nil {
		analysis.PerformanceScore = psRes.Performance
		analysis.AccessibilityScore = psRes.Accessibility
		analysis.BestPractices = psRes.BestPractices
		analysis.SEOScore = psRes.SEO
		analysis.LoadingTimeMs = psRes.InteractiveMs
	}
	if analysis.LoadingTimeMs == 0 {
		analysis.LoadingTimeMs = snap.DurationMs
	}

	if a.evidence != nil && len(snap.Screenshot) > 0 {
		uri, err := a.evidence.PutObject(ctx, screenshotPath(target), "image/png", snap.Screenshot)
		if err != nil {
			a.logger.Warn("store screenshot failed", zap.String("url", target), zap.Error(err))
		} else {
			analysis.ScreenshotURI = uri
		}
	}

	return analysis, nil
}
