package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// OdometerSuffix is the localized "thousand km mileage" label that follows the odometer value.
const OdometerSuffix = "тис. км пробіг"

// ParsePrice converts text such as "$ 12 345" into 12345.
func ParsePrice(raw string) (int64, error) {
	cleaned := stripSpaces(strings.ReplaceAll(raw, "$", ""))
	return parseInt(raw, cleaned)
}

// ParseOdometer converts text such as "120 тис. км пробіг" into kilometres (120000).
func ParseOdometer(raw string) (int64, error) {
	cleaned := strings.ReplaceAll(stripSpaces(raw), stripSpaces(OdometerSuffix), "")
	thousands, err := parseInt(raw, cleaned)
	if err != nil {
		return 0, err
	}
	return thousands * 1000, nil
}

// NormalizePhone converts a formatted phone such as "(067) 123 45 67" into an integer.
// Integer coercion drops leading zeros, so 0671234567 becomes 671234567.
func NormalizePhone(raw string) (int64, error) {
	cleaned := strings.NewReplacer("(", "", ")", "", " ", "").Replace(strings.TrimSpace(raw))
	return parseInt(raw, cleaned)
}

func parseInt(raw, cleaned string) (int64, error) {
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, raw)
	}
	return n, nil
}

// stripSpaces removes every Unicode space, including the non-breaking and thin
// spaces used as thousands separators.
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
