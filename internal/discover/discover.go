// Package discover walks paginated search results and collects detail-page URLs.
package discover

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/metrics"
)

// Defaults for the listing search pages.
const (
	DefaultPageSize     = 100
	DefaultItemSelector = "div.item.ticket-title"
)

// Config controls pagination.
type Config struct {
	BaseURL      string
	PageSize     int
	ItemSelector string
	// MaxPages stops pagination after this many pages; zero means until an empty page.
	MaxPages int
}

// Discoverer requests listing pages one at a time until a page has no items.
type Discoverer struct {
	fetcher crawler.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Discoverer.
func New(fetcher crawler.Fetcher, cfg Config, logger *zap.Logger) *Discoverer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.ItemSelector == "" {
		cfg.ItemSelector = DefaultItemSelector
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Discover returns detail-page URLs in the order they appear across pages.
// A page that cannot be fetched or parsed aborts discovery with an error;
// an item without a usable link is logged and skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	var urls []string
	for page := 0; ; page++ {
		if d.cfg.MaxPages > 0 && page >= d.cfg.MaxPages {
			d.logger.Warn("Page limit reached before an empty page",
				zap.Int("max_pages", d.cfg.MaxPages),
				zap.Int("urls", len(urls)),
			)
			return urls, nil
		}

		found, matched, err := d.discoverPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			d.logger.Info("Discovery finished", zap.Int("pages", page), zap.Int("urls", len(urls)))
			return urls, nil
		}
		urls = append(urls, found...)
	}
}

// discoverPage returns the page's links and the number of items matched,
// which can exceed len(links) when items are skipped.
func (d *Discoverer) discoverPage(ctx context.Context, page int) ([]string, int, error) {
	pageURL := CustomizeURL(d.cfg.BaseURL, page, d.cfg.PageSize)
	resp, err := d.fetcher.Fetch(ctx, crawler.FetchRequest{URL: pageURL})
	if err != nil {
		return nil, 0, fmt.Errorf("fetch listing page %d: %w", page, err)
	}
	metrics.ObserveFetch(metrics.FetchKindListing, resp.Duration)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse listing page %d: %w", page, err)
	}

	items := doc.Find(d.cfg.ItemSelector)
	found := make([]string, 0, items.Length())
	items.Each(func(i int, item *goquery.Selection) {
		href, ok := item.Find("a").First().Attr("href")
		if !ok {
			d.logger.Error("Listing item has no link",
				zap.String("url", pageURL),
				zap.Int("page", page),
				zap.Int("item", i),
			)
			return
		}
		abs, err := resolveHref(pageURL, href)
		if err != nil {
			d.logger.Error("Listing item link is invalid",
				zap.String("url", pageURL),
				zap.Int("page", page),
				zap.Int("item", i),
				zap.Error(err),
			)
			return
		}
		found = append(found, abs)
	})

	d.logger.Debug("Listing page parsed",
		zap.String("url", pageURL),
		zap.Int("page", page),
		zap.Int("items", items.Length()),
		zap.Int("links", len(found)),
	)
	metrics.ObserveListingPage(len(found))
	return found, items.Length(), nil
}
