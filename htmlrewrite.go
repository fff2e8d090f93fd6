package topic2html

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// RenderedPost is one post after its cooked HTML has been localized.
type RenderedPost struct {
	PostNumber int64
	Username   string
	CreatedAt  string
	AvatarSrc  string
	CookedHTML string
}

// RenderContext carries the per-topic facts needed to rewrite a post body.
type RenderContext struct {
	BaseURL *url.URL
	TopicID int64
}

// RenderPosts localizes every non-empty post in stream order. Posts are
// rewritten concurrently; the asset store collapses duplicate fetches
// (shared avatars, repeated images) into single downloads.
func RenderPosts(ctx context.Context, topic *Topic, baseURL *url.URL, avatarSize int, store *AssetStore) ([]RenderedPost, error) {
	var posts []*Post
	for i := range topic.PostStream.Posts {
		p := &topic.PostStream.Posts[i]
		if strings.TrimSpace(p.Cooked) != "" {
			posts = append(posts, p)
		}
	}

	rendered := make([]RenderedPost, len(posts))
	rctx := RenderContext{BaseURL: baseURL, TopicID: topic.ID}

	g, gctx := errgroup.WithContext(ctx)
	for i, post := range posts {
		g.Go(func() error {
			r, err := renderPost(gctx, post, rctx, avatarSize, store)
			if err != nil {
				return fmt.Errorf("rewrite cooked html for post %d: %w", post.PostNumber, err)
			}
			rendered[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return rendered, nil
}

func renderPost(ctx context.Context, post *Post, rctx RenderContext, avatarSize int, store *AssetStore) (RenderedPost, error) {
	username := post.DisplayUsername
	if username == "" {
		username = post.Username
	}
	if username == "" {
		username = "unknown"
	}

	avatarSrc, err := resolveAvatar(ctx, post, rctx.BaseURL, avatarSize, store)
	if err != nil {
		return RenderedPost{}, err
	}

	cooked, err := RewriteCookedHTML(ctx, strings.TrimSpace(post.Cooked), rctx, store)
	if err != nil {
		return RenderedPost{}, err
	}

	return RenderedPost{
		PostNumber: post.PostNumber,
		Username:   username,
		CreatedAt:  post.CreatedAt,
		AvatarSrc:  avatarSrc,
		CookedHTML: cooked,
	}, nil
}

// resolveAvatar substitutes {size} in the avatar template and fetches the
// result. An empty template means no avatar is rendered.
func resolveAvatar(ctx context.Context, post *Post, baseURL *url.URL, avatarSize int, store *AssetStore) (string, error) {
	template := post.AvatarTemplate
	if template == "" {
		return "", nil
	}

	resolved := strings.ReplaceAll(template, "{size}", strconv.Itoa(avatarSize))
	u, err := resolveAnyURL(baseURL, resolved)
	if err != nil {
		return "", fmt.Errorf("resolve avatar_template %q: %w", template, err)
	}
	return store.Get(ctx, AssetRequest{Kind: KindAvatar, Source: RemoteSource(u)})
}

// RewriteCookedHTML localizes one post body fragment: scripts are removed,
// iframes/audio/video become plain links, image and style references are
// fetched through the store, and same-topic permalinks become same-document
// anchors.
func RewriteCookedHTML(ctx context.Context, cooked string, rctx RenderContext, store *AssetStore) (string, error) {
	doc, err := html.Parse(strings.NewReader(cooked))
	if err != nil {
		return "", fmt.Errorf("parse cooked html: %w", err)
	}

	for _, n := range collectNodes(doc, func(n *html.Node) bool { return isElement(n, "script") }) {
		n.Parent.RemoveChild(n)
	}

	// Never fetched: replaced with plain links.
	for _, name := range []string{"iframe", "audio", "video"} {
		for _, n := range collectNodes(doc, func(n *html.Node) bool { return isElement(n, name) }) {
			n.Parent.InsertBefore(newLinkNode(getAttr(n, "src")), n)
			n.Parent.RemoveChild(n)
		}
	}

	for _, name := range []string{"img", "source"} {
		for _, n := range collectNodes(doc, func(n *html.Node) bool { return isElement(n, name) }) {
			if err := rewriteImageElement(ctx, n, rctx.BaseURL, store); err != nil {
				return "", err
			}
		}
	}

	for _, n := range collectNodes(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasAttr(n, "style")
	}) {
		rewritten, err := rewriteInlineStyle(ctx, getAttr(n, "style"), rctx.BaseURL, store)
		if err != nil {
			return "", err
		}
		setAttr(n, "style", rewritten)
	}

	for _, n := range collectNodes(doc, func(n *html.Node) bool {
		return isElement(n, "a") && hasClass(n, "lightbox")
	}) {
		href := getAttr(n, "href")
		if !looksLikeImageURL(href) {
			continue
		}
		u, err := resolveAnyURL(rctx.BaseURL, href)
		if err != nil {
			return "", err
		}
		localized, err := store.Get(ctx, AssetRequest{Kind: KindImage, Source: RemoteSource(u)})
		if err != nil {
			return "", err
		}
		setAttr(n, "href", localized)
	}

	for _, n := range collectNodes(doc, func(n *html.Node) bool {
		return isElement(n, "a") && hasAttr(n, "href")
	}) {
		href := getAttr(n, "href")
		if anchor, ok := topicLocalAnchor(rctx.BaseURL, rctx.TopicID, href); ok {
			setAttr(n, "href", anchor)
			continue
		}
		if shouldAbsolutizeHref(href) {
			if u, err := resolveAnyURL(rctx.BaseURL, href); err == nil {
				setAttr(n, "href", u.String())
			}
		}
	}

	return renderBodyChildren(doc)
}

// rewriteImageElement localizes an <img> or <source>: the best srcset
// candidate wins when present, otherwise a non-empty non-data src.
func rewriteImageElement(ctx context.Context, n *html.Node, baseURL *url.URL, store *AssetStore) error {
	if srcset := getAttr(n, "srcset"); srcset != "" {
		if best, ok := chooseBestFromSrcset(srcset); ok {
			u, err := resolveAnyURL(baseURL, best)
			if err != nil {
				return err
			}
			localized, err := store.Get(ctx, AssetRequest{Kind: KindImage, Source: RemoteSource(u)})
			if err != nil {
				return err
			}
			setAttr(n, "src", localized)
			removeAttr(n, "srcset")
			return nil
		}
	}

	src := strings.TrimSpace(getAttr(n, "src"))
	if src == "" || strings.HasPrefix(src, "data:") {
		return nil
	}
	u, err := resolveAnyURL(baseURL, src)
	if err != nil {
		return err
	}
	localized, err := store.Get(ctx, AssetRequest{Kind: KindImage, Source: RemoteSource(u)})
	if err != nil {
		return err
	}
	setAttr(n, "src", localized)
	return nil
}

// rewriteInlineStyle localizes url() references inside a style attribute,
// reusing the CSS url syntax scanner.
func rewriteInlineStyle(ctx context.Context, style string, baseURL *url.URL, store *AssetStore) (string, error) {
	var out strings.Builder
	last := 0

	for _, m := range urlRe.FindAllStringSubmatchIndex(style, -1) {
		out.WriteString(style[last:m[0]])

		raw := strings.Trim(strings.TrimSpace(firstSubmatch(style, m, 1, 2, 3)), `"'`)
		if isNonFetchable(raw) {
			out.WriteString(style[m[0]:m[1]])
			last = m[1]
			continue
		}

		u, err := resolveAnyURL(baseURL, raw)
		if err != nil {
			return "", err
		}
		localized, err := store.Get(ctx, AssetRequest{Kind: KindImage, Source: RemoteSource(u)})
		if err != nil {
			return "", err
		}

		out.WriteString(`url("`)
		out.WriteString(strings.ReplaceAll(localized, `"`, `\"`))
		out.WriteString(`")`)
		last = m[1]
	}

	out.WriteString(style[last:])
	return out.String(), nil
}

// looksLikeImageURL reports whether the href's path extension (query string
// ignored) names an image format.
func looksLikeImageURL(href string) bool {
	p := strings.ToLower(strings.SplitN(href, "?", 2)[0])
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".avif"} {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// shouldAbsolutizeHref reports whether a link href should be resolved
// against the base URL: relative links only, never fragments or
// mailto/tel/javascript/data schemes.
func shouldAbsolutizeHref(href string) bool {
	h := strings.TrimSpace(href)
	if h == "" ||
		strings.HasPrefix(h, "#") ||
		strings.HasPrefix(h, "mailto:") ||
		strings.HasPrefix(h, "tel:") ||
		strings.HasPrefix(h, "javascript:") ||
		strings.HasPrefix(h, "data:") {
		return false
	}
	return !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://")
}

// chooseBestFromSrcset picks the srcset candidate with the highest width or
// density descriptor. Ties keep the first seen; descriptors that are neither
// "<n>w" nor "<n>x" score zero.
func chooseBestFromSrcset(srcset string) (string, bool) {
	var (
		bestURL   string
		bestScore float64
		found     bool
	)
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		candidate := fields[0]

		var score float64
		if len(fields) > 1 {
			d := fields[1]
			if strings.HasSuffix(d, "w") || strings.HasSuffix(d, "x") {
				if v, err := strconv.ParseFloat(d[:len(d)-1], 64); err == nil {
					score = v
				}
			}
		}

		if !found || score > bestScore {
			bestURL = candidate
			bestScore = score
			found = true
		}
	}
	return bestURL, found
}

// topicLocalAnchor rewrites a same-site permalink into this topic to a
// same-document anchor. Accepted path shapes: /t/<slug>/<id>/<post> and
// /t/<id>/<post>. URLs already carrying a #post_<n> fragment pass through as
// that anchor.
func topicLocalAnchor(baseURL *url.URL, topicID int64, href string) (string, bool) {
	resolved, err := resolveAnyURL(baseURL, href)
	if err != nil {
		return "", false
	}
	if resolved.Host != baseURL.Host {
		return "", false
	}

	if strings.HasPrefix(resolved.Fragment, "post_") {
		return "#" + resolved.Fragment, true
	}

	segs := strings.Split(strings.Trim(resolved.Path, "/"), "/")
	if len(segs) == 0 || segs[0] != "t" {
		return "", false
	}

	var topicSeg, postSeg string
	if len(segs) > 1 {
		if _, err := strconv.ParseInt(segs[1], 10, 64); err == nil {
			topicSeg = segs[1]
			if len(segs) > 2 {
				postSeg = segs[2]
			}
		} else if len(segs) > 2 {
			topicSeg = segs[2]
			if len(segs) > 3 {
				postSeg = segs[3]
			}
		}
	}
	if topicSeg == "" || postSeg == "" {
		return "", false
	}

	id, err := strconv.ParseInt(topicSeg, 10, 64)
	if err != nil || id != topicID {
		return "", false
	}
	post, err := strconv.ParseInt(postSeg, 10, 64)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("#post_%d", post), true
}
