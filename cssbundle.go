package topic2html

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// fontFallbackURI keeps a stylesheet syntactically valid when a font could
// not be fetched: an inert, empty font payload.
const fontFallbackURI = "data:font/woff2;base64,"

// importRe matches @import directives in their quoted, single-quoted, and
// bare url() forms, with an optional trailing media clause before the
// semicolon. Groups: double-quoted URL, single-quoted URL, bare URL, media.
var importRe = regexp.MustCompile(`@import\s+(?:url\(\s*)?(?:"([^"]+)"|'([^']+)'|([^);]+))\s*\)?\s*([^;]*);`)

// urlRe matches url(...) references, quoted or bare.
// Groups: double-quoted URL, single-quoted URL, bare URL.
var urlRe = regexp.MustCompile(`url\(\s*(?:"([^"]+)"|'([^']+)'|([^)]+))\s*\)`)

// CSSBundler inlines @import chains and localizes url() references,
// producing one self-contained stylesheet.
type CSSBundler struct {
	baseURL *url.URL
	store   *AssetStore
	logger  *slog.Logger
}

// NewCSSBundler creates a bundler resolving references against baseURL and
// storing assets through store. A nil logger falls back to slog.Default().
func NewCSSBundler(baseURL *url.URL, store *AssetStore, logger *slog.Logger) *CSSBundler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSSBundler{baseURL: baseURL, store: store, logger: logger}
}

// Bundle concatenates the fully-resolved text of each origin in input order.
// Each distinct origin is read and processed at most once per call, so
// cyclic and diamond-shaped import graphs terminate.
func (b *CSSBundler) Bundle(ctx context.Context, origins []CSSOrigin) (string, error) {
	visited := make(map[string]bool)
	var out strings.Builder

	for i, origin := range origins {
		css, err := b.loadRecursive(ctx, origin, visited)
		if err != nil {
			return "", fmt.Errorf("process css %s: %w", origin, err)
		}
		if i != 0 {
			out.WriteByte('\n')
		}
		out.WriteString(css)
		out.WriteByte('\n')
	}

	return out.String(), nil
}

// DiscoverOrigins fetches the base URL's HTML and returns the stylesheet
// links it references, deduplicated, in document order.
func (b *CSSBundler) DiscoverOrigins(ctx context.Context) ([]CSSOrigin, error) {
	text, err := b.store.FetchRemoteText(ctx, b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("download html %s: %w", b.baseURL, err)
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", b.baseURL, err)
	}

	var origins []CSSOrigin
	seen := make(map[string]bool)
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "link" {
			return
		}
		if !isStylesheetLink(getAttr(n, "rel"), getAttr(n, "as")) {
			return
		}
		href := strings.TrimSpace(getAttr(n, "href"))
		if href == "" || isNonFetchable(href) {
			return
		}
		u, err := resolveAnyURL(b.baseURL, href)
		if err != nil {
			return
		}
		if key := u.String(); !seen[key] {
			seen[key] = true
			origins = append(origins, RemoteOrigin(u))
		}
	})

	return origins, nil
}

// isStylesheetLink reports whether a <link> rel token list marks a
// stylesheet, including the rel="preload" as="style" variant.
func isStylesheetLink(rel, asAttr string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "stylesheet" {
			return true
		}
		if token == "preload" && strings.EqualFold(asAttr, "style") {
			return true
		}
	}
	return false
}

// loadRecursive reads one origin's text and resolves it. Origins already in
// the visited set contribute nothing; insertion happens before descending so
// self-importing stylesheets terminate.
func (b *CSSBundler) loadRecursive(ctx context.Context, origin CSSOrigin, visited map[string]bool) (string, error) {
	key := origin.key()
	if visited[key] {
		return "", nil
	}
	visited[key] = true

	var css string
	if origin.url != nil {
		text, err := b.store.FetchRemoteText(ctx, origin.url)
		if err != nil {
			return "", fmt.Errorf("download css %s: %w", origin.url, err)
		}
		css = text
	} else {
		body, err := os.ReadFile(origin.path)
		if err != nil {
			return "", fmt.Errorf("read css %s: %w", origin.path, err)
		}
		css = string(body)
	}

	return b.inlineImports(ctx, origin, css, visited)
}

// inlineImports splices each @import's resolved content in place of the
// directive (wrapped in @media when a clause is present) and rewrites url()
// references in the text between directives.
func (b *CSSBundler) inlineImports(ctx context.Context, origin CSSOrigin, css string, visited map[string]bool) (string, error) {
	var out strings.Builder
	last := 0

	for _, m := range importRe.FindAllStringSubmatchIndex(css, -1) {
		before, err := b.rewriteURLs(ctx, origin, css[last:m[0]])
		if err != nil {
			return "", err
		}
		out.WriteString(before)

		raw := strings.TrimSpace(firstSubmatch(css, m, 1, 2, 3))
		media := strings.TrimSpace(submatch(css, m, 4))

		imported, err := b.resolveImportOrigin(origin, raw)
		if err != nil {
			return "", fmt.Errorf("resolve @import %q: %w", raw, err)
		}
		inlined, err := b.loadRecursive(ctx, imported, visited)
		if err != nil {
			return "", err
		}

		if media == "" {
			out.WriteString(inlined)
		} else {
			out.WriteString("@media ")
			out.WriteString(media)
			out.WriteString(" {")
			out.WriteString(inlined)
			out.WriteString("}\n")
		}

		last = m[1]
	}

	tail, err := b.rewriteURLs(ctx, origin, css[last:])
	if err != nil {
		return "", err
	}
	out.WriteString(tail)
	return out.String(), nil
}

// rewriteURLs localizes every url() reference in a stretch of CSS that
// contains no @import directives.
func (b *CSSBundler) rewriteURLs(ctx context.Context, origin CSSOrigin, css string) (string, error) {
	var out strings.Builder
	last := 0

	for _, m := range urlRe.FindAllStringSubmatchIndex(css, -1) {
		out.WriteString(css[last:m[0]])

		raw := strings.Trim(strings.TrimSpace(firstSubmatch(css, m, 1, 2, 3)), `"'`)
		if isNonFetchable(raw) {
			out.WriteString(css[m[0]:m[1]])
			last = m[1]
			continue
		}

		resolved, err := b.resolveAssetURL(origin, raw)
		if err != nil {
			return "", fmt.Errorf("resolve css url %q: %w", raw, err)
		}
		kind := guessAssetKind(resolved, raw)

		replacement, err := b.store.Get(ctx, resolved.request(kind))
		if err != nil {
			if kind != KindFont {
				return "", fmt.Errorf("download asset %q: %w", raw, err)
			}
			// Fonts degrade to an inert placeholder rather than failing
			// the run.
			b.logger.Warn("font download failed; substituting placeholder",
				"url", raw, "error", err)
			replacement = fontFallbackURI
		}

		if b.store.Mode() == ModeDir {
			replacement = relativizeForBundledCSS(replacement, b.store.AssetsDirName())
		}

		out.WriteString(`url("`)
		out.WriteString(strings.ReplaceAll(replacement, `"`, `\"`))
		out.WriteString(`")`)

		last = m[1]
	}

	out.WriteString(css[last:])
	return out.String(), nil
}

// resolveImportOrigin turns an @import target into the next origin to
// bundle, using the shared resolution rules.
func (b *CSSBundler) resolveImportOrigin(origin CSSOrigin, raw string) (CSSOrigin, error) {
	resolved, err := b.resolveAssetURL(origin, raw)
	if err != nil {
		return CSSOrigin{}, err
	}
	if resolved.url != nil {
		return RemoteOrigin(resolved.url), nil
	}
	return LocalOrigin(resolved.path), nil
}

// resolveAssetURL resolves a raw reference against its origin: absolute and
// protocol-relative URLs stand alone, root-relative paths resolve against
// the origin's host (or the site base for local origins), and anything else
// joins the origin's directory or URL.
func (b *CSSBundler) resolveAssetURL(origin CSSOrigin, raw string) (resolvedAsset, error) {
	r := strings.TrimSpace(raw)

	if strings.HasPrefix(r, "http://") || strings.HasPrefix(r, "https://") {
		u, err := url.Parse(r)
		if err != nil {
			return resolvedAsset{}, err
		}
		return resolvedAsset{url: u}, nil
	}
	if strings.HasPrefix(r, "//") {
		u, err := url.Parse(b.baseURL.Scheme + ":" + r)
		if err != nil {
			return resolvedAsset{}, err
		}
		return resolvedAsset{url: u}, nil
	}
	if strings.HasPrefix(r, "/") {
		base := b.baseURL
		if origin.url != nil {
			base = origin.url
		}
		u, err := base.Parse(r)
		if err != nil {
			return resolvedAsset{}, err
		}
		return resolvedAsset{url: u}, nil
	}

	if origin.url != nil {
		u, err := origin.url.Parse(r)
		if err != nil {
			return resolvedAsset{}, err
		}
		return resolvedAsset{url: u}, nil
	}
	return resolvedAsset{path: filepath.Join(filepath.Dir(origin.path), filepath.FromSlash(r))}, nil
}

// guessAssetKind classifies a reference by extension, falling back to the
// well-known font CDN hostnames.
func guessAssetKind(resolved resolvedAsset, raw string) AssetKind {
	switch resolved.ext() {
	case "woff2", "woff", "ttf", "otf", "eot":
		return KindFont
	case "png", "jpg", "jpeg", "gif", "webp", "svg", "avif":
		return KindImage
	}
	if strings.Contains(raw, "fonts.googleapis.com") || strings.Contains(raw, "fonts.gstatic.com") {
		return KindFont
	}
	return KindOther
}

// relativizeForBundledCSS adjusts a store-returned path for the bundled
// stylesheet's location: site.css lives one level beneath the asset tree, so
// the leading "<assets>/" becomes "../".
func relativizeForBundledCSS(replacement, assetsDirName string) string {
	if strings.HasPrefix(replacement, "data:") {
		return replacement
	}
	if rest, ok := strings.CutPrefix(replacement, assetsDirName+"/"); ok {
		return "../" + rest
	}
	return replacement
}

// submatch returns the text of capture group g, or "" if it did not match.
func submatch(s string, m []int, g int) string {
	if m[2*g] < 0 {
		return ""
	}
	return s[m[2*g]:m[2*g+1]]
}

// firstSubmatch returns the first of the given capture groups that matched.
func firstSubmatch(s string, m []int, groups ...int) string {
	for _, g := range groups {
		if m[2*g] >= 0 {
			return s[m[2*g]:m[2*g+1]]
		}
	}
	return ""
}
