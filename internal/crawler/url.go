package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize resolves rawURL against baseURL (when given) and canonicalizes the
// result so that two spellings of the same page collapse to one visited-set
// entry. It lowercases the scheme and host, removes default ports, trailing
// path slashes and fragments, and sorts query parameters.
//
// URLs without a parseable http(s) scheme and host fail with ErrMalformedURL.
func Normalize(rawURL, baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", fmt.Errorf("%w: base: %v", ErrMalformedURL, err)
		}
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// hostOf returns the lowercased hostname of a URL, or "" when unparseable.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
