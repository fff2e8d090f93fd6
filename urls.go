package topic2html

import (
	"fmt"
	"net/url"
	"strings"
)

// resolveAnyURL resolves a raw reference against the site base URL the way a
// browser would: absolute http(s) URLs pass through, protocol-relative URLs
// inherit the base scheme, everything else joins against the base.
func resolveAnyURL(base *url.URL, raw string) (*url.URL, error) {
	r := strings.TrimSpace(raw)
	if strings.HasPrefix(r, "http://") || strings.HasPrefix(r, "https://") {
		return url.Parse(r)
	}
	if strings.HasPrefix(r, "//") {
		return url.Parse(base.Scheme + ":" + r)
	}
	u, err := base.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("resolve %q against %s: %w", raw, base, err)
	}
	return u, nil
}

// isNonFetchable reports whether a reference must be left untouched because
// fetching it is meaningless or impossible: data/about/blob URIs, bare
// fragments, and empty strings.
func isNonFetchable(raw string) bool {
	r := strings.TrimSpace(raw)
	return r == "" ||
		strings.HasPrefix(r, "data:") ||
		strings.HasPrefix(r, "about:") ||
		strings.HasPrefix(r, "#") ||
		strings.HasPrefix(r, "blob:")
}
