package types

import (
	"net/url"
	"strings"
)

// URLNormalizer validates raw targets and rewrites them to a canonical
// absolute form under a single origin. Targets on any other origin are
// rejected: the subsystem only accelerates same-origin navigation.
type URLNormalizer struct {
	scheme string
	host   string
}

// NewURLNormalizer creates a normalizer bound to the given origin, e.g.
// "https://example.com". The origin must carry a scheme and host and
// nothing else of significance.
func NewURLNormalizer(origin string) (*URLNormalizer, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return &URLNormalizer{scheme: u.Scheme, host: u.Host}, nil
}

// Origin returns the canonical origin string.
func (n *URLNormalizer) Origin() string {
	return n.scheme + "://" + n.host
}

// Normalize converts raw to its canonical absolute form. It returns
// ErrInvalidURL for malformed input and ErrExternalURL for targets on a
// different origin. Fragments are dropped; queries are kept.
func (n *URLNormalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	switch {
	case u.Scheme == "" && u.Host == "":
		// Relative reference. Anything not rooted at the origin (bare
		// fragments, scheme-less garbage) is malformed.
		if !strings.HasPrefix(u.Path, "/") {
			return "", ErrInvalidURL
		}
	case u.Scheme == n.scheme && u.Host == n.host:
		// Absolute same-origin form.
	case u.Scheme == "http" || u.Scheme == "https":
		return "", ErrExternalURL
	default:
		// javascript:, mailto:, data: and friends are not navigable targets.
		return "", ErrInvalidURL
	}

	out := url.URL{
		Scheme:   n.scheme,
		Host:     n.host,
		Path:     u.Path,
		RawQuery: u.RawQuery,
	}
	if out.Path == "" {
		out.Path = "/"
	}
	return out.String(), nil
}
