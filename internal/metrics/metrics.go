// Package metrics exposes Prometheus collectors for crawl runs.
//
// Collectors live on a private registry so a finished run can push exactly its
// own series to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Fetch kinds used as the "kind" label of the fetch histogram.
const (
	FetchKindListing = "listing"
	FetchKindDetail  = "detail"
	FetchKindPhone   = "phone"
)

// Item statuses used as the "status" label of the items counter.
const (
	ItemStatusOK     = "ok"
	ItemStatusFailed = "failed"
)

var (
	registry *prometheus.Registry

	listingPagesTotal    prometheus.Counter
	urlsDiscoveredTotal  prometheus.Counter
	itemsTotal           *prometheus.CounterVec
	rowsInsertedTotal    prometheus.Counter
	rowsDumpedTotal      prometheus.Counter
	fetchDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		factory := promauto.With(registry)

		listingPagesTotal = factory.NewCounter(prometheus.CounterOpts{
			Name: "carcrawler_listing_pages_total",
			Help: "Total number of paginated listing pages fetched.",
		})

		urlsDiscoveredTotal = factory.NewCounter(prometheus.CounterOpts{
			Name: "carcrawler_urls_discovered_total",
			Help: "Total number of detail-page URLs discovered.",
		})

		itemsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcrawler_items_total",
				Help: "Total number of detail pages processed, labeled by status.",
			},
			[]string{"status"},
		)

		rowsInsertedTotal = factory.NewCounter(prometheus.CounterOpts{
			Name: "carcrawler_rows_inserted_total",
			Help: "Total number of listing rows inserted.",
		})

		rowsDumpedTotal = factory.NewCounter(prometheus.CounterOpts{
			Name: "carcrawler_rows_dumped_total",
			Help: "Total number of listing rows archived to dump files.",
		})

		fetchDurationSeconds = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carcrawler_fetch_duration_seconds",
				Help:    "Histogram of HTTP fetch latencies, labeled by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)
	})
}

// Gatherer returns the registry holding every crawler collector.
func Gatherer() prometheus.Gatherer {
	Init()
	return registry
}

// ObserveFetch records one fetch latency.
func ObserveFetch(kind string, d time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveListingPage counts a fetched listing page and the links it yielded.
func ObserveListingPage(links int) {
	Init()
	listingPagesTotal.Inc()
	if links > 0 {
		urlsDiscoveredTotal.Add(float64(links))
	}
}

// ObserveItem counts one detail page by outcome.
func ObserveItem(status string) {
	Init()
	itemsTotal.WithLabelValues(status).Inc()
}

// ObserveInserted counts inserted rows.
func ObserveInserted(n int64) {
	Init()
	if n > 0 {
		rowsInsertedTotal.Add(float64(n))
	}
}

// ObserveDumped counts archived rows.
func ObserveDumped(n int) {
	Init()
	if n > 0 {
		rowsDumpedTotal.Add(float64(n))
	}
}

// Push sends the current values to a Pushgateway, grouped by run ID.
func Push(ctx context.Context, gatewayURL, job, runID string) error {
	Init()
	pusher := push.New(gatewayURL, job).Gatherer(registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
