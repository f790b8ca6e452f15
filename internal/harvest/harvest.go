// Package harvest fetches detail pages concurrently and extracts listing records.
package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/extract"
	"github.com/JakeFAU/car-listing-crawler/internal/metrics"
)

// Config controls the fan-out.
type Config struct {
	// MaxParallel caps in-flight detail fetches. Zero runs one task per URL at once.
	MaxParallel int
}

// Harvester runs one fetch+extract task per URL over a shared fetcher and
// joins the whole batch before returning.
type Harvester struct {
	fetcher   crawler.Fetcher
	extractor *extract.Extractor
	phones    *PhoneResolver
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Harvester. phones may be nil to skip phone resolution.
func New(
	fetcher crawler.Fetcher,
	extractor *extract.Extractor,
	phones *PhoneResolver,
	cfg Config,
	logger *zap.Logger,
) *Harvester {
	if extractor == nil {
		extractor = extract.New(extract.Selectors{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		fetcher:   fetcher,
		extractor: extractor,
		phones:    phones,
		cfg:       cfg,
		logger:    logger,
	}
}

// FetchAll returns a record for every URL that was fetched and fully extracted.
// Failed URLs are logged and left out. A URL listed twice is fetched twice and
// yields two records. Callers must not rely on the result lining up
// positionally with urls.
func (h *Harvester) FetchAll(ctx context.Context, urls []string) []crawler.Record {
	return Successes(h.Outcomes(ctx, urls))
}

// Outcomes runs the batch and reports the result of every task, in input order.
func (h *Harvester) Outcomes(ctx context.Context, urls []string) []crawler.Outcome {
	outcomes := make([]crawler.Outcome, len(urls))

	var g errgroup.Group
	if h.cfg.MaxParallel > 0 {
		g.SetLimit(h.cfg.MaxParallel)
	}
	for i, url := range urls {
		g.Go(func() error {
			outcomes[i] = h.harvestOne(ctx, url)
			return nil
		})
	}
	// Tasks report failures through their Outcome, never through the group.
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.OK() {
			metrics.ObserveItem(metrics.ItemStatusOK)
			continue
		}
		failed++
		metrics.ObserveItem(metrics.ItemStatusFailed)
		h.logger.Error("Listing extraction failed", zap.String("url", o.URL), zap.Error(o.Err))
	}
	h.logger.Info("Harvest finished",
		zap.Int("urls", len(urls)),
		zap.Int("records", len(urls)-failed),
		zap.Int("failed", failed),
	)
	return outcomes
}

// Successes keeps the records of successful outcomes.
func Successes(outcomes []crawler.Outcome) []crawler.Record {
	records := make([]crawler.Record, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			records = append(records, *o.Record)
		}
	}
	return records
}

func (h *Harvester) harvestOne(ctx context.Context, url string) (out crawler.Outcome) {
	out.URL = url
	defer func() {
		if r := recover(); r != nil {
			out = crawler.Outcome{URL: url, Err: fmt.Errorf("extract panicked: %v", r)}
		}
	}()

	resp, err := h.fetcher.Fetch(ctx, crawler.FetchRequest{URL: url})
	if err != nil {
		out.Err = fmt.Errorf("fetch detail page: %w", err)
		return out
	}
	metrics.ObserveFetch(metrics.FetchKindDetail, resp.Duration)

	rec, err := h.extractor.Parse(url, resp.Body)
	if err != nil {
		out.Err = fmt.Errorf("extract listing: %w", err)
		return out
	}

	if h.phones != nil {
		phone, err := h.phones.Resolve(ctx, resp.Body)
		if err != nil {
			out.Err = fmt.Errorf("resolve phone: %w", err)
			return out
		}
		rec.Phone = &phone
	}

	out.Record = &rec
	return out
}
