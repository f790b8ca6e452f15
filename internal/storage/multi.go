// Package storage fans dump archives out to every configured sink.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/car-listing-crawler/internal/crawler"
)

// Multi writes each dump to every archive in order. The first archive is the
// primary one and its URI is returned.
type Multi []crawler.ArchiveWriter

// NewMulti drops nil archives and requires at least one remaining.
func NewMulti(archives ...crawler.ArchiveWriter) (Multi, error) {
	out := make(Multi, 0, len(archives))
	for _, a := range archives {
		if a != nil {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("at least one archive is required")
	}
	return out, nil
}

// Put stops at the first failing archive, so the caller can keep its rows.
func (m Multi) Put(ctx context.Context, name string, data []byte) (string, error) {
	if len(m) == 0 {
		return "", errors.New("no archives configured")
	}
	var primary string
	for i, a := range m {
		uri, err := a.Put(ctx, name, data)
		if err != nil {
			return "", fmt.Errorf("archive %d: %w", i, err)
		}
		if i == 0 {
			primary = uri
		}
	}
	return primary, nil
}
