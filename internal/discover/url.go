package discover

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	pageParam = regexp.MustCompile(`([?&])page=[^&#]*`)
	sizeParam = regexp.MustCompile(`([?&])size=[^&#]*`)
)

// CustomizeURL points a listing URL at the given page index and page size.
// Existing page/size parameters are rewritten in place; missing ones are
// appended, so the result never carries duplicate keys.
func CustomizeURL(raw string, page, size int) string {
	base, fragment, hasFragment := strings.Cut(raw, "#")
	base = setParam(base, pageParam, "page", page)
	base = setParam(base, sizeParam, "size", size)
	if hasFragment {
		return base + "#" + fragment
	}
	return base
}

func setParam(raw string, re *regexp.Regexp, key string, value int) string {
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, fmt.Sprintf("${1}%s=%d", key, value))
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", raw, sep, key, value)
}

func resolveHref(pageURL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
