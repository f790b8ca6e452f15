package crawler

import (
	"net/http"
	"time"
)

// Record is the structured tuple extracted from one vehicle detail page.
// A Record only exists when every required field parsed; it is never partially filled.
type Record struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Price       int64  `json:"price_usd"`
	Odometer    int64  `json:"odometer"`
	Username    string `json:"username"`
	ImageURL    string `json:"image_url"`
	ImageCount  int    `json:"images_count"`
	PlateNumber string `json:"car_number"`
	VIN         string `json:"car_vin"`
	// Phone is only populated when phone resolution is enabled.
	Phone *int64 `json:"phone_number,omitempty"`
}

// Values returns the record in persisted column order (see Columns).
func (r Record) Values() []any {
	var phone any
	if r.Phone != nil {
		phone = *r.Phone
	}
	return []any{
		r.URL,
		r.Title,
		r.Price,
		r.Odometer,
		r.Username,
		r.ImageURL,
		r.ImageCount,
		r.PlateNumber,
		r.VIN,
		phone,
	}
}

// Columns lists the writable listing columns, matching Record.Values.
var Columns = []string{
	"url",
	"title",
	"price_usd",
	"odometer",
	"username",
	"image_url",
	"images_count",
	"car_number",
	"car_vin",
	"phone_number",
}

// Outcome is the result of one detail-page task: a record or the error that dropped it.
type Outcome struct {
	URL    string
	Record *Record
	Err    error
}

// OK reports whether the task produced a record.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Record != nil
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// DumpResult describes one archived table snapshot.
type DumpResult struct {
	FileName string
	URI      string
	Rows     int
	DumpedAt time.Time
}

// RunSummary reports the counts of a single crawl pass.
type RunSummary struct {
	RunID      string
	Discovered int
	Extracted  int
	Failed     int
	Inserted   int64
	Dump       DumpResult
}
