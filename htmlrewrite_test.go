package topic2html

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChooseBestFromSrcset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		srcset string
		want   string
		ok     bool
	}{
		{
			name:   "width descriptors",
			srcset: "/img/a-320.png 320w, /img/a-640.png 640w, /img/a-1280.png 1280w",
			want:   "/img/a-1280.png",
			ok:     true,
		},
		{
			name:   "density descriptors",
			srcset: "/img/a.png 1x, /img/a@2x.png 2x",
			want:   "/img/a@2x.png",
			ok:     true,
		},
		{
			name:   "ties keep first",
			srcset: "/img/first.png 2x, /img/second.png 2x",
			want:   "/img/first.png",
			ok:     true,
		},
		{
			name:   "no descriptors keeps first",
			srcset: "/img/one.png, /img/two.png",
			want:   "/img/one.png",
			ok:     true,
		},
		{
			name:   "malformed descriptor scores zero",
			srcset: "/img/a.png huge, /img/b.png 2x",
			want:   "/img/b.png",
			ok:     true,
		},
		{
			name:   "empty",
			srcset: "   ",
			want:   "",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := chooseBestFromSrcset(tt.srcset)
			if got != tt.want || ok != tt.ok {
				t.Errorf("chooseBestFromSrcset(%q) = (%q, %v), want (%q, %v)", tt.srcset, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTopicLocalAnchor(t *testing.T) {
	t.Parallel()

	base := mustParseURL(t, "https://forum.example")

	tests := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{name: "slug id post", href: "https://forum.example/t/my-topic/123/7", want: "#post_7", ok: true},
		{name: "id post", href: "https://forum.example/t/123/4", want: "#post_4", ok: true},
		{name: "relative slug id post", href: "/t/my-topic/123/2", want: "#post_2", ok: true},
		{name: "post fragment passthrough", href: "https://forum.example/t/my-topic/123?u=x#post_9", want: "#post_9", ok: true},
		{name: "different topic", href: "https://forum.example/t/other/999/3", ok: false},
		{name: "different host", href: "https://elsewhere.example/t/my-topic/123/7", ok: false},
		{name: "no post segment", href: "https://forum.example/t/my-topic/123", ok: false},
		{name: "not a topic path", href: "https://forum.example/u/someone", ok: false},
		{name: "non-numeric post", href: "https://forum.example/t/my-topic/123/last", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := topicLocalAnchor(base, 123, tt.href)
			if got != tt.want || ok != tt.ok {
				t.Errorf("topicLocalAnchor(%q) = (%q, %v), want (%q, %v)", tt.href, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestShouldAbsolutizeHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want bool
	}{
		{"/u/someone", true},
		{"relative/page", true},
		{"https://elsewhere.example/x", false},
		{"#post_3", false},
		{"mailto:a@example.com", false},
		{"tel:+1555", false},
		{"javascript:void(0)", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := shouldAbsolutizeHref(tt.href); got != tt.want {
			t.Errorf("shouldAbsolutizeHref(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

// cookedTestStore builds a single-mode store backed by a server that answers
// every path with PNG bytes.
func cookedTestStore(t *testing.T) (*AssetStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(srv.Close)
	return NewSingleStore(NewFetcher("test-agent", 4, discardLogger())), srv
}

func TestRewriteCookedHTMLRemovesScripts(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	rctx := RenderContext{BaseURL: mustParseURL(t, srv.URL), TopicID: 1}

	out, err := RewriteCookedHTML(context.Background(), `<p>hello</p><script>alert(1)</script>`, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if strings.Contains(out, "<script") || strings.Contains(out, "alert") {
		t.Errorf("script survived rewrite:\n%s", out)
	}
	if !strings.Contains(out, "<p>hello</p>") {
		t.Errorf("content lost:\n%s", out)
	}
}

func TestRewriteCookedHTMLReplacesEmbedsWithLinks(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	rctx := RenderContext{BaseURL: mustParseURL(t, srv.URL), TopicID: 1}

	out, err := RewriteCookedHTML(context.Background(),
		`<iframe src="https://video.example/embed/42"></iframe><video src=""></video>`, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if strings.Contains(out, "<iframe") || strings.Contains(out, "<video") {
		t.Errorf("embed element survived rewrite:\n%s", out)
	}
	if !strings.Contains(out, `href="https://video.example/embed/42"`) {
		t.Errorf("iframe not replaced with a link:\n%s", out)
	}
	if !strings.Contains(out, `rel="noreferrer noopener"`) {
		t.Errorf("replacement link missing rel:\n%s", out)
	}
	// A sourceless embed still yields a readable placeholder.
	if !strings.Contains(out, ">link<") {
		t.Errorf("sourceless embed has no fallback text:\n%s", out)
	}
}

func TestRewriteCookedHTMLLocalizesImages(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	rctx := RenderContext{BaseURL: mustParseURL(t, srv.URL), TopicID: 1}

	out, err := RewriteCookedHTML(context.Background(),
		`<img src="/uploads/pic.png" srcset="/uploads/pic-320.png 320w, /uploads/pic-640.png 640w">`, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if !strings.Contains(out, `src="data:image/png;base64,`) {
		t.Errorf("img src not localized:\n%s", out)
	}
	if strings.Contains(out, "srcset") {
		t.Errorf("srcset attribute survived:\n%s", out)
	}
}

func TestRewriteCookedHTMLKeepsDataURIImages(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	rctx := RenderContext{BaseURL: mustParseURL(t, srv.URL), TopicID: 1}

	in := `<img src="data:image/gif;base64,R0lGOD">`
	out, err := RewriteCookedHTML(context.Background(), in, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if !strings.Contains(out, "data:image/gif;base64,R0lGOD") {
		t.Errorf("data URI image was altered:\n%s", out)
	}
}

func TestRewriteCookedHTMLRewritesInlineStyles(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	rctx := RenderContext{BaseURL: mustParseURL(t, srv.URL), TopicID: 1}

	out, err := RewriteCookedHTML(context.Background(),
		`<div style="background-image: url('/uploads/bg.png')">x</div>`, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if !strings.Contains(out, `url(&#34;data:image/png;base64,`) && !strings.Contains(out, `url("data:image/png;base64,`) {
		t.Errorf("style url not localized:\n%s", out)
	}
}

func TestRewriteCookedHTMLLocalizesLightboxLinks(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	rctx := RenderContext{BaseURL: mustParseURL(t, srv.URL), TopicID: 1}

	out, err := RewriteCookedHTML(context.Background(),
		`<a class="lightbox" href="/uploads/full.jpeg"><img src="/uploads/thumb.png"></a>`, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if strings.Contains(out, `href="/uploads/full.jpeg"`) {
		t.Errorf("lightbox href not localized:\n%s", out)
	}
	if !strings.Contains(out, `href="data:image/png;base64,`) {
		t.Errorf("lightbox href missing data URI:\n%s", out)
	}
}

func TestRewriteCookedHTMLRewritesPermalinks(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	base := mustParseURL(t, srv.URL)
	rctx := RenderContext{BaseURL: base, TopicID: 123}

	in := `<a href="` + srv.URL + `/t/my-topic/123/7">same topic</a>` +
		`<a href="/u/someone">profile</a>` +
		`<a href="https://elsewhere.example/page">external</a>`
	out, err := RewriteCookedHTML(context.Background(), in, rctx, store)
	if err != nil {
		t.Fatalf("RewriteCookedHTML() error = %v", err)
	}
	if !strings.Contains(out, `href="#post_7"`) {
		t.Errorf("same-topic permalink not anchored:\n%s", out)
	}
	if !strings.Contains(out, `href="`+srv.URL+`/u/someone"`) {
		t.Errorf("relative link not absolutized:\n%s", out)
	}
	if !strings.Contains(out, `href="https://elsewhere.example/page"`) {
		t.Errorf("external link altered:\n%s", out)
	}
}

func TestRenderPosts(t *testing.T) {
	t.Parallel()

	store, srv := cookedTestStore(t)
	base := mustParseURL(t, srv.URL)

	topic := &Topic{
		ID:    123,
		Title: "A Topic",
		PostStream: PostStream{Posts: []Post{
			{
				PostNumber:     1,
				Username:       "alice",
				AvatarTemplate: "/user_avatar/a/{size}.png",
				CreatedAt:      "2026-01-02T03:04:05Z",
				Cooked:         "<p>first</p>",
			},
			{PostNumber: 2, Username: "bob", Cooked: "   "},
			{
				PostNumber:      3,
				DisplayUsername: "Carol D",
				Username:        "carol",
				Cooked:          "<p>third</p>",
			},
			{PostNumber: 4, Cooked: "<p>fourth</p>"},
		}},
	}

	posts, err := RenderPosts(context.Background(), topic, base, 120, store)
	if err != nil {
		t.Fatalf("RenderPosts() error = %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("rendered posts = %d, want 3 (blank cooked skipped)", len(posts))
	}
	if posts[0].PostNumber != 1 || posts[1].PostNumber != 3 || posts[2].PostNumber != 4 {
		t.Errorf("post order = %d,%d,%d, want 1,3,4", posts[0].PostNumber, posts[1].PostNumber, posts[2].PostNumber)
	}
	if posts[0].Username != "alice" {
		t.Errorf("posts[0].Username = %q, want alice", posts[0].Username)
	}
	if posts[1].Username != "Carol D" {
		t.Errorf("posts[1].Username = %q, want display name", posts[1].Username)
	}
	if posts[2].Username != "unknown" {
		t.Errorf("posts[2].Username = %q, want unknown", posts[2].Username)
	}
	if !strings.HasPrefix(posts[0].AvatarSrc, "data:image/png;base64,") {
		t.Errorf("avatar not localized: %q", posts[0].AvatarSrc)
	}
	if posts[2].AvatarSrc != "" {
		t.Errorf("posts[2].AvatarSrc = %q, want empty (no template)", posts[2].AvatarSrc)
	}
}
