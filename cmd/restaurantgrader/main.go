// Package main wires together the restaurant grading service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/restaurantgrader/restaurantgrader/internal/analyzer"
	"github.com/restaurantgrader/restaurantgrader/internal/api"
	"github.com/restaurantgrader/restaurantgrader/internal/browser"
	"github.com/restaurantgrader/restaurantgrader/internal/clock/system"
	"github.com/restaurantgrader/restaurantgrader/internal/config"
	"github.com/restaurantgrader/restaurantgrader/internal/dispatcher"
	gcsevidence "github.com/restaurantgrader/restaurantgrader/internal/evidence/gcs"
	localevidence "github.com/restaurantgrader/restaurantgrader/internal/evidence/local"
	memoryevidence "github.com/restaurantgrader/restaurantgrader/internal/evidence/memory"
	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/id/uuid"
	"github.com/restaurantgrader/restaurantgrader/internal/logging"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
	"github.com/restaurantgrader/restaurantgrader/internal/orchestrator"
	memorypublisher "github.com/restaurantgrader/restaurantgrader/internal/publisher/memory"
	pubsubpublisher "github.com/restaurantgrader/restaurantgrader/internal/publisher/pubsub"
	queuememory "github.com/restaurantgrader/restaurantgrader/internal/queue/memory"
	"github.com/restaurantgrader/restaurantgrader/internal/scoring"
	"github.com/restaurantgrader/restaurantgrader/internal/search"
	storememory "github.com/restaurantgrader/restaurantgrader/internal/store/memory"
	storepostgres "github.com/restaurantgrader/restaurantgrader/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()
	queue := queuememory.NewQueue(cfg.Grader.QueueDepth)

	scanStore, leadStore, closeStores, err := buildStores(ctx, cfg, clock)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStores()

	evidence, err := buildEvidenceStore(ctx, cfg)
	if err != nil {
		logger.Fatal("evidence store init failed", zap.Error(err))
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	browserMgr := browser.NewManager(browser.Config{
		UserAgent:         cfg.Grader.UserAgent,
		NavigationTimeout: time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
		ViewportWidth:     int64(cfg.Browser.ViewportWidth),
		ViewportHeight:    int64(cfg.Browser.ViewportHeight),
		MaxPages:          cfg.Browser.MaxPages,
	}, logger.Named("browser"))
	defer browserMgr.Close()

	pagespeed := analyzer.NewPageSpeedClient(
		cfg.PageSpeed.Endpoint,
		cfg.PageSpeed.APIKey,
		time.Duration(cfg.PageSpeed.TimeoutSeconds)*time.Second,
		logger.Named("pagespeed"),
	)
	websiteAnalyzer := analyzer.NewWebsite(pagespeed, browserMgr, evidence, logger.Named("website"))
	profileAnalyzer := analyzer.NewPlaces(
		cfg.Places.SearchEndpoint,
		cfg.Places.DetailsEndpoint,
		cfg.Places.APIKey,
		time.Duration(cfg.Places.TimeoutSeconds)*time.Second,
		clock,
		logger.Named("places"),
	)
	reviewsAnalyzer := analyzer.NewReviews()
	orderingAnalyzer := analyzer.NewOrdering()
	probe := analyzer.NewProbe(analyzer.ProbeConfig{
		UserAgent: cfg.Grader.UserAgent,
		Timeout:   15 * time.Second,
	})
	searcher := search.New(
		cfg.Places.SearchEndpoint,
		cfg.Places.APIKey,
		time.Duration(cfg.Places.TimeoutSeconds)*time.Second,
		logger.Named("search"),
	)
	scorer := scoring.New(clock)

	workerCfg := orchestrator.Config{
		Topic:       cfg.PubSub.TopicName,
		ScanTimeout: cfg.ScanTimeout(),
	}
	var workers []*orchestrator.Worker
	for i := 0; i < cfg.Grader.Concurrency; i++ {
		workers = append(workers, orchestrator.New(
			queue,
			scanStore,
			websiteAnalyzer,
			profileAnalyzer,
			reviewsAnalyzer,
			orderingAnalyzer,
			publisher,
			scorer,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(
		scanStore,
		leadStore,
		dispatch,
		websiteAnalyzer,
		probe,
		searcher,
		idGen,
		clock,
		cfg,
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

// buildStores selects Postgres when a DSN is configured and falls back to the
// in-memory stores otherwise.
func buildStores(ctx context.Context, cfg config.Config, clock grader.Clock) (grader.ScanStore, grader.LeadStore, func(), error) {
	if cfg.DB.DSN == "" {
		return storememory.NewScanStore(clock), storememory.NewLeadStore(clock), func() {}, nil
	}
	scans, err := storepostgres.NewScanStore(ctx, storepostgres.ScanStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.ScansTable,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, clock)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres scan store: %w", err)
	}
	leads, err := storepostgres.NewLeadStore(ctx, storepostgres.LeadStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.LeadsTable,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, clock)
	if err != nil {
		scans.Close()
		return nil, nil, nil, fmt.Errorf("postgres lead store: %w", err)
	}
	return scans, leads, func() {
		scans.Close()
		leads.Close()
	}, nil
}

func buildEvidenceStore(ctx context.Context, cfg config.Config) (grader.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "local":
		return localevidence.New(localevidence.Config{BaseDir: cfg.Storage.BaseDir})
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcsevidence.New(client, gcsevidence.Config{Bucket: cfg.Storage.GCSBucket})
	default:
		return memoryevidence.NewBlobStore(), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (grader.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" {
		return memorypublisher.New(), func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("pubsub client close", zap.Error(err))
		}
	}
	return pubsubpublisher.New(client), closeFn, nil
}
