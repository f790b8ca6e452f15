// Package extract turns listing detail pages into crawler.Record values.
//
// Extraction is all-or-nothing: the first field that cannot be located or
// coerced aborts the page with an error wrapping ErrMissingField or
// ErrMalformedNumber, and no partial record is produced.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
)

var (
	// ErrMissingField marks a selector or attribute that was not present on the page.
	ErrMissingField = errors.New("missing field")
	// ErrMalformedNumber marks numeric text that could not be coerced to an integer.
	ErrMalformedNumber = errors.New("malformed number")
)

// Selectors locates each field on a detail page.
type Selectors struct {
	Price    string
	Title    string
	Odometer string
	Gallery  string
	Plate    string
	VIN      string
	Username string
}

// DefaultSelectors matches the auto.ria.com detail page markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Price:    "div.price_value",
		Title:    "h1.head",
		Odometer: "div.base-information.bold",
		Gallery:  "div.preview-gallery.mhide",
		Plate:    "span.state-num.ua",
		VIN:      "span.label-vin",
		Username: "div.seller_info_name",
	}
}

// Extractor parses detail pages with a fixed selector set.
type Extractor struct {
	sel Selectors
}

// New returns an Extractor. Empty selectors fall back to DefaultSelectors.
func New(sel Selectors) *Extractor {
	def := DefaultSelectors()
	if sel.Price == "" {
		sel.Price = def.Price
	}
	if sel.Title == "" {
		sel.Title = def.Title
	}
	if sel.Odometer == "" {
		sel.Odometer = def.Odometer
	}
	if sel.Gallery == "" {
		sel.Gallery = def.Gallery
	}
	if sel.Plate == "" {
		sel.Plate = def.Plate
	}
	if sel.VIN == "" {
		sel.VIN = def.VIN
	}
	if sel.Username == "" {
		sel.Username = def.Username
	}
	return &Extractor{sel: sel}
}

// Parse builds a Record from raw detail-page HTML.
func (e *Extractor) Parse(pageURL string, body []byte) (crawler.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.Record{}, fmt.Errorf("parse html: %w", err)
	}
	return e.Listing(doc, pageURL)
}

// Listing extracts every required field from an already parsed document.
func (e *Extractor) Listing(doc *goquery.Document, pageURL string) (crawler.Record, error) {
	rec := crawler.Record{URL: pageURL}

	priceText, err := text(doc.Selection, e.sel.Price)
	if err != nil {
		return crawler.Record{}, err
	}
	if rec.Price, err = ParsePrice(priceText); err != nil {
		return crawler.Record{}, err
	}

	title, err := text(doc.Selection, e.sel.Title)
	if err != nil {
		return crawler.Record{}, err
	}
	rec.Title = strings.TrimSpace(title)

	odoText, err := text(doc.Selection, e.sel.Odometer)
	if err != nil {
		return crawler.Record{}, err
	}
	if rec.Odometer, err = ParseOdometer(odoText); err != nil {
		return crawler.Record{}, err
	}

	if rec.ImageURL, rec.ImageCount, err = e.gallery(doc); err != nil {
		return crawler.Record{}, err
	}

	if rec.PlateNumber, err = firstTextNode(doc.Selection, e.sel.Plate); err != nil {
		return crawler.Record{}, err
	}

	vin, err := text(doc.Selection, e.sel.VIN)
	if err != nil {
		return crawler.Record{}, err
	}
	rec.VIN = strings.TrimSpace(vin)

	username, err := text(doc.Selection, e.sel.Username)
	if err != nil {
		return crawler.Record{}, err
	}
	rec.Username = strings.TrimSpace(username)

	return rec, nil
}

func (e *Extractor) gallery(doc *goquery.Document) (string, int, error) {
	container := doc.Find(e.sel.Gallery).First()
	if container.Length() == 0 {
		return "", 0, fmt.Errorf("%w: %s", ErrMissingField, e.sel.Gallery)
	}
	anchors := container.Find("a")
	if anchors.Length() == 0 {
		return "", 0, fmt.Errorf("%w: %s a", ErrMissingField, e.sel.Gallery)
	}
	src, ok := anchors.First().Find("img").First().Attr("src")
	if !ok {
		return "", 0, fmt.Errorf("%w: %s a img[src]", ErrMissingField, e.sel.Gallery)
	}
	return src, anchors.Length(), nil
}

func text(root *goquery.Selection, selector string) (string, error) {
	s := root.Find(selector).First()
	if s.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, selector)
	}
	return s.Text(), nil
}

// firstTextNode returns the element's leading text, ignoring nested markup such
// as the region flag inside plate badges.
func firstTextNode(root *goquery.Selection, selector string) (string, error) {
	s := root.Find(selector).First()
	if s.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, selector)
	}
	first := s.Contents().First()
	if first.Length() == 0 || first.Nodes[0].Type != html.TextNode {
		return "", fmt.Errorf("%w: %s text", ErrMissingField, selector)
	}
	return strings.TrimSpace(first.Nodes[0].Data), nil
}
