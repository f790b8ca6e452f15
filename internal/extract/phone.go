package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	secureHashPattern = regexp.MustCompile(`data-user-secure-hash="([^"]+)`)
	expiresPattern    = regexp.MustCompile(`data-expires="([^"]+)`)
	autoIDPattern     = regexp.MustCompile(`data-auto-id="([^"]+)`)
)

// PhoneTokens are the values embedded in a detail page that unlock the phone-reveal endpoint.
type PhoneTokens struct {
	SecureHash string
	Expires    string
	AutoID     string
}

// ParsePhoneTokens finds the phone-reveal tokens in raw page HTML.
func ParsePhoneTokens(body []byte) (PhoneTokens, error) {
	var tokens PhoneTokens
	var err error
	if tokens.SecureHash, err = capture(secureHashPattern, body, "data-user-secure-hash"); err != nil {
		return PhoneTokens{}, err
	}
	if tokens.Expires, err = capture(expiresPattern, body, "data-expires"); err != nil {
		return PhoneTokens{}, err
	}
	if tokens.AutoID, err = capture(autoIDPattern, body, "data-auto-id"); err != nil {
		return PhoneTokens{}, err
	}
	return tokens, nil
}

// URL builds the phone-reveal request for the given endpoint, e.g.
// https://auto.ria.com/users/phones/{autoID}?hash=..&expires=..
func (t PhoneTokens) URL(endpoint string) string {
	q := url.Values{}
	q.Set("hash", t.SecureHash)
	q.Set("expires", t.Expires)
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(endpoint, "/"), url.PathEscape(t.AutoID), q.Encode())
}

func capture(re *regexp.Regexp, body []byte, name string) (string, error) {
	m := re.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return string(m[1]), nil
}
