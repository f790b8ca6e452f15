// Package pipeline runs one crawl cycle: discover, harvest, insert, dump.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/harvest"
	"github.com/JakeFAU/car-listing-crawler/internal/metrics"
)

// Discoverer lists every detail-page URL currently on the site.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// Harvester fetches and extracts each URL, reporting one outcome per URL.
type Harvester interface {
	Outcomes(ctx context.Context, urls []string) []crawler.Outcome
}

// Store persists records and archives the accumulated table.
type Store interface {
	Insert(ctx context.Context, records []crawler.Record) (int64, error)
	Dump(ctx context.Context, at time.Time, archive crawler.ArchiveWriter) (crawler.DumpResult, error)
}

// Config controls optional pipeline behavior.
type Config struct {
	// Topic receives a DumpEvent after each archived dump; empty disables it.
	Topic string
}

// DumpEvent is published once a dump file has been archived.
type DumpEvent struct {
	RunID    string    `json:"run_id"`
	File     string    `json:"file"`
	URI      string    `json:"uri"`
	Rows     int       `json:"rows"`
	DumpedAt time.Time `json:"dumped_at"`
}

// Pipeline wires the crawl stages together.
type Pipeline struct {
	discoverer Discoverer
	harvester  Harvester
	store      Store
	archive    crawler.ArchiveWriter
	publisher  crawler.Publisher
	clock      crawler.Clock
	ids        crawler.IDGenerator
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline. publisher may be nil when notifications are off.
func New(
	discoverer Discoverer,
	harvester Harvester,
	store Store,
	archive crawler.ArchiveWriter,
	publisher crawler.Publisher,
	clock crawler.Clock,
	ids crawler.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		discoverer: discoverer,
		harvester:  harvester,
		store:      store,
		archive:    archive,
		publisher:  publisher,
		clock:      clock,
		ids:        ids,
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
	}
}

// Run executes one full cycle. Discovery, database and archive errors abort the
// run; item failures are counted in the summary.
func (p *Pipeline) Run(ctx context.Context) (crawler.RunSummary, error) {
	if p.discoverer == nil || p.harvester == nil || p.store == nil || p.archive == nil {
		return crawler.RunSummary{}, errors.New("pipeline is missing a stage")
	}
	runID, err := p.ids.NewID()
	if err != nil {
		return crawler.RunSummary{}, err
	}
	summary := crawler.RunSummary{RunID: runID}
	logger := p.logger.With(zap.String("run_id", runID))
	started := p.clock.Now()
	logger.Info("Crawl run started")

	urls, err := p.discoverer.Discover(ctx)
	if err != nil {
		return summary, fmt.Errorf("discover listings: %w", err)
	}
	summary.Discovered = len(urls)
	logger.Info("URLs discovered", zap.Int("urls", len(urls)))

	outcomes := p.harvester.Outcomes(ctx, urls)
	records := harvest.Successes(outcomes)
	summary.Extracted = len(records)
	summary.Failed = len(outcomes) - len(records)
	logger.Info("Records extracted",
		zap.Int("extracted", summary.Extracted),
		zap.Int("failed", summary.Failed),
	)

	inserted, err := p.store.Insert(ctx, records)
	if err != nil {
		return summary, fmt.Errorf("insert records: %w", err)
	}
	summary.Inserted = inserted
	metrics.ObserveInserted(inserted)
	logger.Info("Records inserted", zap.Int64("rows", inserted))

	result, err := p.store.Dump(ctx, p.clock.Now(), p.archive)
	if err != nil {
		return summary, fmt.Errorf("dump table: %w", err)
	}
	summary.Dump = result
	metrics.ObserveDumped(result.Rows)
	logger.Info("Table dumped",
		zap.String("file", result.FileName),
		zap.String("uri", result.URI),
		zap.Int("rows", result.Rows),
	)

	p.notify(ctx, logger, summary)
	logger.Info("Crawl run finished", zap.Duration("elapsed", p.clock.Now().Sub(started)))
	return summary, nil
}

// notify never fails the run: the dump is already archived and the table cleared.
func (p *Pipeline) notify(ctx context.Context, logger *zap.Logger, summary crawler.RunSummary) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	event := DumpEvent{
		RunID:    summary.RunID,
		File:     summary.Dump.FileName,
		URI:      summary.Dump.URI,
		Rows:     summary.Dump.Rows,
		DumpedAt: summary.Dump.DumpedAt,
	}
	id, err := p.publisher.Publish(ctx, p.cfg.Topic, event)
	if err != nil {
		logger.Error("Failed to publish dump event", zap.String("topic", p.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("Published dump event", zap.String("message_id", id))
}
