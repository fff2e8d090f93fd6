package topic2html

import (
	"fmt"
	"html/template"
	"strings"
)

// Cooked returns the localized post body for template insertion. The
// fragment was produced by this pipeline and re-checked by the strict
// validator, so it is trusted HTML.
func (p RenderedPost) Cooked() template.HTML { return template.HTML(p.CookedHTML) }

// Avatar returns the avatar reference for template insertion. It is either
// a store-relative path or a data: URI the store produced; html/template's
// URL filter would otherwise reject data: schemes.
func (p RenderedPost) Avatar() template.URL { return template.URL(p.AvatarSrc) }

// pageData feeds the page templates.
type pageData struct {
	Title    string
	CSSHref  string
	CSS      template.CSS
	Posts    []RenderedPost
	ToggleJS template.JS
}

// PostCount returns the number of rendered posts, shown in the minimal
// layout footer.
func (d pageData) PostCount() int { return len(d.Posts) }

const fullPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{if .CSSHref}}<link rel="stylesheet" href="{{.CSSHref}}">{{else}}<style>{{.CSS}}</style>{{end}}
</head>
<body class="crawler">
<div id="main-outlet" class="wrap">
<header class="topic-header">
<h1 class="topic-title">{{.Title}}</h1>
</header>
<main class="topic-posts">
{{range .Posts}}<article id="post_{{.PostNumber}}" class="topic-post">
<div class="post-wrapper">
<aside class="topic-avatar">
{{if .AvatarSrc}}<img class="avatar" width="45" height="45" src="{{.Avatar}}" alt="avatar">{{end}}
</aside>
<section class="topic-body">
<header class="topic-meta-data">
<div class="names"><span class="username">{{.Username}}</span></div>
<div class="post-info">
<span class="post-number">#{{.PostNumber}}</span>
{{if .CreatedAt}} <time datetime="{{.CreatedAt}}">{{.CreatedAt}}</time>{{end}}
</div>
</header>
<div class="cooked">{{.Cooked}}</div>
</section>
</div>
</article>
{{end}}</main>
</div>
</body>
</html>
`

const minimalPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="color-scheme" content="light dark">
<title>{{.Title}}</title>
{{if .CSSHref}}<link rel="stylesheet" href="{{.CSSHref}}">{{else}}<style>{{.CSS}}</style>{{end}}
</head>
<body class="dtr">
<header class="dtr-topbar">
<div class="dtr-container dtr-topbar-inner">
<div class="dtr-title"><h1>{{.Title}}</h1></div>
<button type="button" id="dtr-theme-toggle" class="dtr-btn">Theme</button>
</div>
</header>
<main class="dtr-container dtr-main">
{{range .Posts}}<article id="post_{{.PostNumber}}" class="dtr-post">
<header class="dtr-post-header">
{{if .AvatarSrc}}<div class="dtr-post-avatar">
<img class="dtr-avatar" width="40" height="40" src="{{.Avatar}}" alt="avatar">
</div>{{end}}
<div class="dtr-post-meta">
<div class="dtr-post-meta-top"><span class="dtr-username">{{.Username}}</span></div>
<div class="dtr-post-sub">
<a class="dtr-post-number" href="#post_{{.PostNumber}}">#{{.PostNumber}}</a>
{{if .CreatedAt}}<time datetime="{{.CreatedAt}}">{{.CreatedAt}}</time>{{end}}
</div>
</div>
</header>
<div class="cooked dtr-cooked">{{.Cooked}}</div>
</article>
{{end}}</main>
<footer class="dtr-footer">
<div class="dtr-container">Posts: {{.PostCount}}</div>
</footer>
<script>{{.ToggleJS}}</script>
</body>
</html>
`

var (
	fullPageTmpl    = template.Must(template.New("page").Parse(fullPageTemplate))
	minimalPageTmpl = template.Must(template.New("minimal").Parse(minimalPageTemplate))
)

// BuildHTML assembles the full-layout document. When cssHref is non-empty
// the stylesheet is linked; otherwise css is inlined in a <style> element.
func BuildHTML(topic *Topic, posts []RenderedPost, css, cssHref string) (string, error) {
	return executePage(fullPageTmpl, pageData{
		Title:   topic.Title,
		CSSHref: cssHref,
		CSS:     template.CSS(css),
		Posts:   posts,
	})
}

// BuildHTMLMinimal assembles the built-in-theme document with the
// client-side light/dark toggle.
func BuildHTMLMinimal(topic *Topic, posts []RenderedPost, css, cssHref, toggleJS string) (string, error) {
	return executePage(minimalPageTmpl, pageData{
		Title:    topic.Title,
		CSSHref:  cssHref,
		CSS:      template.CSS(css),
		Posts:    posts,
		ToggleJS: template.JS(toggleJS),
	})
}

func executePage(tmpl *template.Template, data pageData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("assemble page: %w", err)
	}
	return b.String(), nil
}
