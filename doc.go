// Package topic2html renders a fetched forum topic into a self-contained,
// offline HTML artifact.
//
// # Quick Start
//
// Parse a topic JSON export, create a service, and render:
//
//	topic, err := topic2html.ParseTopic(jsonBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc := topic2html.New()
//	err = svc.Render(ctx, topic2html.Input{
//	    Topic:   topic,
//	    BaseURL: baseURL,
//	    Mode:    topic2html.ModeDir,
//	    OutPath: "out",
//	})
//
// # Render Pipeline
//
// The render follows these stages:
//
//  1. CSS bundling: explicit local stylesheets, or stylesheets discovered
//     from the base URL's HTML, recursively inlined (@import) with every
//     url() reference localized
//  2. Post rewriting: each post's cooked HTML has scripts removed, media
//     elements replaced with links, and every image/avatar reference
//     fetched and localized
//  3. Page assembly: posts and CSS are composed into one document
//  4. Strict validation: the assembled HTML and CSS are proven to contain
//     no remote or root-relative references before anything is written
//
// Every asset goes through a single-flight, content-addressed store: no
// matter how many posts or CSS rules reference the same URL, it is fetched
// exactly once per run, and identical bytes collapse to one stored file.
//
// # Output Modes
//
// ModeDir writes <out>/topic-<id>.html plus a deduplicated asset tree under
// <out>/<assets-dir>/. ModeSingle writes one HTML file with every asset
// inlined as a data: URI.
//
// # Configuration
//
// Use functional options to customize the service:
//
//	svc := topic2html.New(
//	    topic2html.WithUserAgent("my-archiver/1.0"),
//	    topic2html.WithMaxConcurrency(4),
//	    topic2html.WithLogger(logger),
//	)
//
// # Offline Guarantee
//
// A successful render guarantees the artifact triggers zero network requests
// when opened: remote stylesheets, imports, images, avatars and fonts are
// inlined or stored locally, scripts are stripped, and iframes/audio/video
// are replaced with plain links. The validation stage re-scans the final
// document and fails the run if anything slipped through.
package topic2html
