package topic2html

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// AssertStrictOffline proves the assembled artifact is offline-safe: neither
// the HTML nor the CSS may reference anything that a browser would fetch.
// A violation signals a defect in the rewriting pipeline, not a
// user-correctable condition.
func AssertStrictOffline(htmlText, cssText string) error {
	if err := assertCSSStrict(cssText); err != nil {
		return err
	}
	return assertHTMLStrict(htmlText)
}

// cssForbiddenPatterns covers url( in quoted and bare forms followed by an
// absolute, protocol-relative, or root-relative target, plus @import
// directives aimed at absolute http(s) URLs.
var cssForbiddenPatterns = []string{
	"url(http://",
	"url(https://",
	"url(//",
	"url(/",
	`url("http://`,
	`url("https://`,
	`url("//`,
	`url("/`,
	`url('http://`,
	`url('https://`,
	`url('//`,
	`url('/`,
	`@import "http`,
	`@import 'http`,
	"@import url(http",
	`@import url("http`,
	`@import url('http`,
}

func assertCSSStrict(css string) error {
	lowered := strings.ToLower(css)
	for _, pat := range cssForbiddenPatterns {
		if strings.Contains(lowered, pat) {
			return fmt.Errorf("%w: css still references non-local urls (%s)", ErrStrictOffline, pat)
		}
	}
	return nil
}

// autoloadChecks lists the element/attribute pairs a browser loads
// automatically.
var autoloadChecks = map[string][]string{
	"img":    {"src", "srcset"},
	"source": {"src", "srcset"},
	"script": {"src"},
	"link":   {"href"},
	"iframe": {"src"},
	"audio":  {"src"},
	"video":  {"src"},
}

func assertHTMLStrict(htmlText string) error {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return fmt.Errorf("parse html for strict check: %w", err)
	}

	var violation error
	walkNodes(doc, func(n *html.Node) {
		if violation != nil || n.Type != html.ElementNode {
			return
		}

		if attrs, ok := autoloadChecks[n.Data]; ok {
			for _, attr := range attrs {
				if !hasAttr(n, attr) {
					continue
				}
				if v := getAttr(n, attr); isDisallowedAutoload(v) {
					violation = fmt.Errorf("%w: <%s %s=%q> is not local", ErrStrictOffline, n.Data, attr, v)
					return
				}
			}
		}

		if style := getAttr(n, "style"); style != "" && containsRemoteCSSRef(style, false) {
			violation = fmt.Errorf("%w: style attribute contains remote url()", ErrStrictOffline)
			return
		}
		if n.Data == "style" {
			if containsRemoteCSSRef(textContent(n), true) {
				violation = fmt.Errorf("%w: <style> contains remote url() or @import", ErrStrictOffline)
			}
		}
	})

	return violation
}

// containsRemoteCSSRef scans inline CSS for remote url() references;
// checkImport additionally forbids any @import.
func containsRemoteCSSRef(css string, checkImport bool) bool {
	lowered := strings.ToLower(css)
	if strings.Contains(lowered, "url(http") || strings.Contains(lowered, "url(//") {
		return true
	}
	return checkImport && strings.Contains(lowered, "@import")
}

// isDisallowedAutoload reports whether an attribute value would trigger a
// network request: non-empty, not an inert scheme, and either remote
// (absolute or protocol-relative) or a root-relative path.
func isDisallowedAutoload(v string) bool {
	s := strings.TrimSpace(v)
	if s == "" {
		return false
	}
	lowered := strings.ToLower(s)
	if strings.HasPrefix(lowered, "data:") ||
		strings.HasPrefix(lowered, "about:") ||
		strings.HasPrefix(lowered, "blob:") ||
		strings.HasPrefix(lowered, "#") {
		return false
	}
	return strings.HasPrefix(lowered, "http://") ||
		strings.HasPrefix(lowered, "https://") ||
		strings.HasPrefix(s, "//") ||
		strings.HasPrefix(s, "/")
}
