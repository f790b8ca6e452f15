// Package main wires together the car listing crawler binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/car-listing-crawler/internal/clock"
	"github.com/JakeFAU/car-listing-crawler/internal/config"
	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/discover"
	"github.com/JakeFAU/car-listing-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/car-listing-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/car-listing-crawler/internal/harvest"
	"github.com/JakeFAU/car-listing-crawler/internal/logging"
	"github.com/JakeFAU/car-listing-crawler/internal/metrics"
	"github.com/JakeFAU/car-listing-crawler/internal/pipeline"
	pubsubpublisher "github.com/JakeFAU/car-listing-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/car-listing-crawler/internal/runid"
	"github.com/JakeFAU/car-listing-crawler/internal/storage"
	"github.com/JakeFAU/car-listing-crawler/internal/storage/gcs"
	"github.com/JakeFAU/car-listing-crawler/internal/storage/local"
	"github.com/JakeFAU/car-listing-crawler/internal/storage/postgres"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env failed: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(os.Getenv(config.FileEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if syncErr := logger.Sync(); syncErr != nil && !errors.Is(syncErr, syscall.ENOTTY) && !errors.Is(syncErr, syscall.EINVAL) {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// run builds every component, executes one crawl cycle and pushes metrics.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	metrics.Init()

	store, err := postgres.NewListingStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN(),
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		logger.Error("Postgres init failed", zap.Error(err))
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Schema creation failed", zap.Error(err))
		return err
	}

	archive, closeArchive, err := buildArchive(ctx, cfg.Output, logger)
	if err != nil {
		logger.Error("Archive init failed", zap.Error(err))
		return err
	}
	defer closeArchive()

	var publisher crawler.Publisher
	if cfg.PubSub.TopicName != "" {
		pub, err := pubsubpublisher.Open(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Error("Pub/Sub init failed", zap.Error(err))
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("Pub/Sub close failed", zap.Error(err))
			}
		}()
		publisher = pub
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.HTTP.Timeout(),
	})
	var phones *harvest.PhoneResolver
	if cfg.Site.ResolvePhone {
		phones = harvest.NewPhoneResolver(fetcher, cfg.Site.PhoneEndpoint)
	}

	p := pipeline.New(
		discover.New(fetcher, discover.Config{
			BaseURL:      cfg.Site.BaseURL,
			PageSize:     cfg.Site.PageSize,
			ItemSelector: cfg.Site.ListingSelector,
			MaxPages:     cfg.Site.MaxPages,
		}, logger.Named("discover")),
		harvest.New(fetcher, extract.New(extract.DefaultSelectors()), phones, harvest.Config{
			MaxParallel: cfg.HTTP.MaxParallel,
		}, logger.Named("harvest")),
		store,
		archive,
		publisher,
		clock.New(nil),
		runid.New(),
		pipeline.Config{Topic: cfg.PubSub.TopicName},
		logger,
	)

	summary, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("Crawl run failed", zap.String("run_id", summary.RunID), zap.Error(runErr))
	} else {
		logger.Info("Crawl run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("discovered", summary.Discovered),
			zap.Int("extracted", summary.Extracted),
			zap.Int("failed", summary.Failed),
			zap.Int64("inserted", summary.Inserted),
			zap.String("dump", summary.Dump.URI),
		)
	}

	if cfg.Metrics.PushgatewayURL != "" {
		// The run context may already be cancelled by a signal.
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName, summary.RunID); err != nil {
			logger.Warn("Metrics push failed", zap.Error(err))
		}
	}
	return runErr
}

// buildArchive returns the local archive, fanned out to GCS when a bucket is configured.
func buildArchive(ctx context.Context, cfg config.OutputConfig, logger *zap.Logger) (crawler.ArchiveWriter, func(), error) {
	noop := func() {}
	localArchive, err := local.New(local.Config{Dir: cfg.Dir})
	if err != nil {
		return nil, noop, err
	}
	if cfg.GCSBucket == "" {
		return localArchive, noop, nil
	}

	gcsArchive, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix})
	if err != nil {
		return nil, noop, err
	}
	closeFn := func() {
		if err := gcsArchive.Close(); err != nil {
			logger.Warn("GCS client close failed", zap.Error(err))
		}
	}
	multi, err := storage.NewMulti(localArchive, gcsArchive)
	if err != nil {
		closeFn()
		return nil, noop, err
	}
	return multi, closeFn, nil
}
