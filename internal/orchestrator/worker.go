// Package orchestrator implements the scan pipeline execution loop.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
	"github.com/restaurantgrader/restaurantgrader/internal/scoring"
)

// Config controls Worker behavior.
type Config struct {
	// Topic receives a CompletionEvent when a scan reaches a terminal
	// state. Empty disables publishing.
	Topic string
	// ScanTimeout bounds one full scan, analyzers included.
	ScanTimeout time.Duration
}

// Worker consumes queued scans and executes the analysis pipeline.
type Worker struct {
	queue     grader.Queue
	scans     grader.ScanStore
	website   grader.WebsiteAnalyzer
	profile   grader.ProfileAnalyzer
	reviews   grader.ReviewsAnalyzer
	ordering  grader.OrderingAnalyzer
	publisher grader.Publisher
	scorer    *scoring.Scorer
	clock     grader.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue grader.Queue,
	scans grader.ScanStore,
	website grader.WebsiteAnalyzer,
	profile grader.ProfileAnalyzer,
	reviews grader.ReviewsAnalyzer,
	ordering grader.OrderingAnalyzer,
	publisher grader.Publisher,
	scorer *scoring.Scorer,
	clock grader.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 5 * time.Minute
	}
	return &Worker{
		queue:     queue,
		scans:     scans,
		website:   website,
		profile:   profile,
		reviews:   reviews,
		ordering:  ordering,
		publisher: publisher,
		scorer:    scorer,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queued scans until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued scan", zap.String("scan_id", item.ScanID))
		w.processScan(ctx, item)
	}
}

func (w *Worker) processScan(ctx context.Context, item grader.ScanItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	scanCtx, cancel := context.WithTimeout(ctx, w.cfg.ScanTimeout)
	defer cancel()

	if err := w.scans.UpdateScanStatus(scanCtx, item.ScanID, grader.ScanStatusInProgress, ""); err != nil {
		w.logger.Error("update scan status failed", zap.String("scan_id", item.ScanID), zap.Error(err))
		return
	}

	results, analysis, recs, err := w.analyze(scanCtx, item)
	if err != nil {
		w.failScan(ctx, item.ScanID, err)
		return
	}

	if err := w.scans.SaveScanResults(scanCtx, item.ScanID, results, analysis, recs); err != nil {
		w.logger.Error("save scan results failed", zap.String("scan_id", item.ScanID), zap.Error(err))
		w.failScan(ctx, item.ScanID, fmt.Errorf("persist results: %w", err))
		return
	}

	metrics.ObserveScan(string(grader.ScanStatusCompleted))
	metrics.AddRecommendations(len(recs))
	w.logger.Info("scan completed",
		zap.String("scan_id", item.ScanID),
		zap.Float64("overall_score", results.OverallScore),
		zap.String("letter_grade", results.LetterGrade),
	)
	w.publishCompletion(ctx, item.ScanID, grader.ScanStatusCompleted, results)
}

// analyze runs the four analyzers and scores the outcome. A website bag with
// no usable signal fails the scan rather than scoring it as zero.
func (w *Worker) analyze(ctx context.Context, item grader.ScanItem) (
	grader.ScoreBreakdown, grader.AnalysisData, []grader.Recommendation, error,
) {
	var zero grader.ScoreBreakdown

	websiteBag, err := w.website.Analyze(ctx, item.Restaurant.Website)
	if err != nil {
		return zero, grader.AnalysisData{}, nil, fmt.Errorf("analyze website: %w", err)
	}
	if websiteBag.Empty() {
		return zero, grader.AnalysisData{}, nil, fmt.Errorf("website analysis returned no data for %s", item.Restaurant.Website)
	}

	profileBag, err := w.profile.Profile(ctx, item.Restaurant)
	if err != nil {
		return zero, grader.AnalysisData{}, nil, fmt.Errorf("analyze profile: %w", err)
	}

	reviewsBag, err := w.reviews.Analyze(ctx, profileBag.Reviews)
	if err != nil {
		return zero, grader.AnalysisData{}, nil, fmt.Errorf("analyze reviews: %w", err)
	}
	// Profile aggregates beat the sampled recent reviews for volume and
	// average when the listing reports them.
	if profileBag.ReviewCount > reviewsBag.TotalReviews {
		reviewsBag.TotalReviews = profileBag.ReviewCount
	}
	if profileBag.Rating > 0 {
		reviewsBag.AverageRating = profileBag.Rating
	}

	orderingBag, err := w.ordering.Analyze(ctx, websiteBag)
	if err != nil {
		return zero, grader.AnalysisData{}, nil, fmt.Errorf("analyze ordering: %w", err)
	}

	results := w.scorer.Overall(
		w.scorer.WebsiteScore(websiteBag),
		w.scorer.GoogleScore(profileBag),
		w.scorer.ReviewsScore(reviewsBag, profileBag.Reviews),
		w.scorer.OrderingScore(orderingBag),
	)
	analysis := grader.AnalysisData{
		Website:  &websiteBag,
		Google:   &profileBag,
		Reviews:  &reviewsBag,
		Ordering: &orderingBag,
	}
	return results, analysis, scoring.Recommendations(websiteBag), nil
}

// failScan marks the scan failed. The parent context is used so a scan that
// timed out can still be recorded.
func (w *Worker) failScan(ctx context.Context, scanID string, cause error) {
	w.logger.Warn("scan failed", zap.String("scan_id", scanID), zap.Error(cause))
	metrics.ObserveScan(string(grader.ScanStatusFailed))

	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.scans.UpdateScanStatus(updateCtx, scanID, grader.ScanStatusFailed, cause.Error()); err != nil {
		w.logger.Error("fail scan status update", zap.String("scan_id", scanID), zap.Error(err))
	}
	w.publishCompletion(updateCtx, scanID, grader.ScanStatusFailed, grader.ScoreBreakdown{})
}

func (w *Worker) publishCompletion(ctx context.Context, scanID string, status grader.ScanStatus, results grader.ScoreBreakdown) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	now := time.Now().UTC()
	if w.clock != nil {
		now = w.clock.Now().UTC()
	}
	event := grader.CompletionEvent{
		ScanID:       scanID,
		Status:       status,
		OverallScore: results.OverallScore,
		LetterGrade:  results.LetterGrade,
		Timestamp:    now.Format(time.RFC3339),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		w.logger.Warn("publish completion event failed", zap.String("scan_id", scanID), zap.Error(err))
		return
	}
	w.logger.Info("completion event published",
		zap.String("scan_id", scanID),
		zap.String("status", string(status)),
	)
}
