package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "dollar with thousands separator", in: "$ 12 345", want: 12345},
		{name: "no-break space separator", in: "12\u00a0345 $", want: 12345},
		{name: "narrow no-break space", in: "$\u202f9\u202f999", want: 9999},
		{name: "plain", in: "500", want: 500},
		{name: "negotiable", in: "Договірна", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOdometer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "localized suffix", in: "120 тис. км пробіг", want: 120000},
		{name: "surrounding whitespace", in: "\n   95 тис. км пробіг  ", want: 95000},
		{name: "no-break spaces", in: "7\u00a0тис.\u00a0км\u00a0пробіг", want: 7000},
		{name: "brand new", in: "без пробігу", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOdometer(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	got, err := NormalizePhone("(067) 123 45 67")
	require.NoError(t, err)
	// The leading zero is lost to integer coercion.
	assert.Equal(t, int64(671234567), got)

	_, err = NormalizePhone("067-123-45-67")
	require.ErrorIs(t, err, ErrMalformedNumber)
}

func mustDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}
