package tld

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	Commercial     = "com"
	Organizational = "org"
)

var ErrNoHost = errors.New("url has no host")

// HasTLD reports whether the host of rawURL ends in the label tld, in any
// case. rawURL must be absolute, such as "https://example.com/path".
func HasTLD(rawURL, tld string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parsing url: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return false, fmt.Errorf("%q: %w", rawURL, ErrNoHost)
	}

	return strings.EqualFold(lastLabel(host), normalize(tld)), nil
}

// IsCommercial reports whether rawURL is on a .com host.
func IsCommercial(rawURL string) (bool, error) {
	return HasTLD(rawURL, Commercial)
}

// IsOrganizational reports whether rawURL is on a .org host.
func IsOrganizational(rawURL string) (bool, error) {
	return HasTLD(rawURL, Organizational)
}
