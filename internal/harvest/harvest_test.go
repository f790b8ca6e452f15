package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/extract"
)

func detailPage(title string, price int) string {
	return fmt.Sprintf(`<html><body>
<div data-user-secure-hash="hash-%[1]s" data-expires="99" data-auto-id="%[1]s"></div>
<h1 class="head"> %[1]s </h1>
<div class="price_value">$ %[2]d</div>
<div class="base-information bold">85 тис. км пробіг</div>
<div class="preview-gallery mhide"><a href="#1"><img src="https://img/%[1]s.jpg"></a><a href="#2"><img src="x"></a></div>
<span class="state-num ua">KA 0001 AA <span>region</span></span>
<span class="label-vin">VIN%[1]s</span>
<div class="seller_info_name">seller-%[1]s</div>
</body></html>`, title, price)
}

type fakeFetcher struct {
	mu       sync.Mutex
	bodies   map[string]string
	errs     map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	headers  map[string]http.Header
}

func (f *fakeFetcher) Fetch(ctx context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.peak.Load()
		if cur <= prev || f.peak.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return crawler.FetchResponse{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headers == nil {
		f.headers = map[string]http.Header{}
	}
	f.headers[req.URL] = req.Headers
	if err, ok := f.errs[req.URL]; ok {
		return crawler.FetchResponse{}, err
	}
	body, ok := f.bodies[req.URL]
	if !ok {
		return crawler.FetchResponse{}, fmt.Errorf("status 404: Not Found")
	}
	return crawler.FetchResponse{URL: req.URL, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func TestFetchAllDropsFailedItems(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		bodies: map[string]string{
			"https://auto.ria.com/a1.html": detailPage("a1", 1000),
			"https://auto.ria.com/a2.html": detailPage("a2", 2000),
			"https://auto.ria.com/a3.html": strings.Replace(detailPage("a3", 3000), "label-vin", "label", 1),
			"https://auto.ria.com/a4.html": strings.Replace(detailPage("a4", 4000), "$ 4000", "Договірна", 1),
			"https://auto.ria.com/a5.html": detailPage("a5", 5000),
		},
		errs: map[string]error{"https://auto.ria.com/a6.html": errors.New("connection reset")},
	}
	urls := []string{
		"https://auto.ria.com/a1.html",
		"https://auto.ria.com/a2.html",
		"https://auto.ria.com/a3.html",
		"https://auto.ria.com/a4.html",
		"https://auto.ria.com/a5.html",
		"https://auto.ria.com/a6.html",
		"https://auto.ria.com/missing.html",
	}

	core, logs := observer.New(zap.ErrorLevel)
	h := New(fetcher, nil, nil, Config{}, zap.New(core))
	records := h.FetchAll(context.Background(), urls)

	require.Len(t, records, len(urls)-4)
	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.URL)
	}
	sort.Strings(got)
	assert.Equal(t, []string{
		"https://auto.ria.com/a1.html",
		"https://auto.ria.com/a2.html",
		"https://auto.ria.com/a5.html",
	}, got)

	failures := logs.FilterMessage("Listing extraction failed").All()
	require.Len(t, failures, 4)
	failedURLs := make([]string, 0, len(failures))
	for _, entry := range failures {
		failedURLs = append(failedURLs, entry.ContextMap()["url"].(string))
		assert.NotEmpty(t, entry.ContextMap()["error"])
	}
	assert.ElementsMatch(t, []string{
		"https://auto.ria.com/a3.html",
		"https://auto.ria.com/a4.html",
		"https://auto.ria.com/a6.html",
		"https://auto.ria.com/missing.html",
	}, failedURLs)
}

func TestOutcomesCarryErrors(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://x/ok":  detailPage("ok", 10),
		"https://x/bad": "<html><body>captcha</body></html>",
	}}
	outcomes := New(fetcher, nil, nil, Config{}, nil).Outcomes(context.Background(), []string{"https://x/ok", "https://x/bad"})

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, int64(10), outcomes[0].Record.Price)
	assert.Equal(t, int64(85000), outcomes[0].Record.Odometer)
	assert.Equal(t, 2, outcomes[0].Record.ImageCount)
	assert.Nil(t, outcomes[0].Record.Phone)
	assert.False(t, outcomes[1].OK())
	assert.ErrorIs(t, outcomes[1].Err, extract.ErrMissingField)
	assert.Nil(t, outcomes[1].Record)
}

func TestFetchAllRunsWholeBatchConcurrently(t *testing.T) {
	t.Parallel()

	const n = 12
	fetcher := &fakeFetcher{bodies: map[string]string{}, delay: 50 * time.Millisecond}
	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		u := fmt.Sprintf("https://x/%d", i)
		urls = append(urls, u)
		fetcher.bodies[u] = detailPage(fmt.Sprint(i), i)
	}

	records := New(fetcher, nil, nil, Config{}, zap.NewNop()).FetchAll(context.Background(), urls)
	require.Len(t, records, n)
	assert.Equal(t, int32(n), fetcher.peak.Load(), "every task should be in flight at once without a cap")
}

func TestFetchAllRespectsParallelCap(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{bodies: map[string]string{}, delay: 20 * time.Millisecond}
	urls := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		u := fmt.Sprintf("https://x/%d", i)
		urls = append(urls, u)
		fetcher.bodies[u] = detailPage(fmt.Sprint(i), i)
	}

	records := New(fetcher, nil, nil, Config{MaxParallel: 3}, zap.NewNop()).FetchAll(context.Background(), urls)
	require.Len(t, records, 10)
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(3))
}

func TestFetchAllEmptyBatch(t *testing.T) {
	t.Parallel()

	records := New(&fakeFetcher{}, nil, nil, Config{}, zap.NewNop()).FetchAll(context.Background(), nil)
	assert.Empty(t, records)
}

func TestFetchAllKeepsDuplicateURLs(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://auto.ria.com/a1.html": detailPage("a1", 1000),
		"https://auto.ria.com/a2.html": detailPage("a2", 2000),
	}}
	urls := []string{
		"https://auto.ria.com/a1.html",
		"https://auto.ria.com/a2.html",
		"https://auto.ria.com/a1.html",
	}

	records := New(fetcher, nil, nil, Config{}, zap.NewNop()).FetchAll(context.Background(), urls)
	require.Len(t, records, 3)
	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.URL)
	}
	assert.ElementsMatch(t, urls, got)
}

func TestHarvestOneRecoversPanics(t *testing.T) {
	t.Parallel()

	h := New(panicFetcher{}, nil, nil, Config{}, zap.NewNop())
	out := h.harvestOne(context.Background(), "https://x/panic")
	require.Error(t, out.Err)
	assert.Equal(t, "https://x/panic", out.URL)
	assert.Contains(t, out.Err.Error(), "panicked")
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, crawler.FetchRequest) (crawler.FetchResponse, error) {
	panic("nil body")
}
