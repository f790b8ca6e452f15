package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
	"github.com/JakeFAU/car-listing-crawler/internal/extract"
	"github.com/JakeFAU/car-listing-crawler/internal/metrics"
)

// DefaultPhoneEndpoint is the auto.ria.com phone-reveal endpoint.
const DefaultPhoneEndpoint = "https://auto.ria.com/users/phones"

// PhoneResolver looks up a seller phone through the phone-reveal endpoint.
type PhoneResolver struct {
	fetcher  crawler.Fetcher
	endpoint string
}

type phoneResponse struct {
	FormattedPhoneNumber string `json:"formattedPhoneNumber"`
}

// jsonHeaders marks the reveal request as the XHR the site's own page sends.
func jsonHeaders() http.Header {
	return http.Header{
		"Accept":           {"application/json"},
		"X-Requested-With": {"XMLHttpRequest"},
	}
}

// NewPhoneResolver returns a resolver that shares the harvest fetcher.
func NewPhoneResolver(fetcher crawler.Fetcher, endpoint string) *PhoneResolver {
	if endpoint == "" {
		endpoint = DefaultPhoneEndpoint
	}
	return &PhoneResolver{fetcher: fetcher, endpoint: endpoint}
}

// Resolve reads the reveal tokens from a detail page body and returns the normalized phone.
func (p *PhoneResolver) Resolve(ctx context.Context, page []byte) (int64, error) {
	tokens, err := extract.ParsePhoneTokens(page)
	if err != nil {
		return 0, err
	}
	resp, err := p.fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:     tokens.URL(p.endpoint),
		Headers: jsonHeaders(),
	})
	if err != nil {
		return 0, fmt.Errorf("fetch phone: %w", err)
	}
	metrics.ObserveFetch(metrics.FetchKindPhone, resp.Duration)

	var payload phoneResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return 0, fmt.Errorf("decode phone response: %w", err)
	}
	if payload.FormattedPhoneNumber == "" {
		return 0, fmt.Errorf("%w: formattedPhoneNumber", extract.ErrMissingField)
	}
	return extract.NormalizePhone(payload.FormattedPhoneNumber)
}
