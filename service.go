package topic2html

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alnah/go-topic2html/internal/assets"
	"github.com/alnah/go-topic2html/internal/fileutil"
)

// Service defaults.
const (
	DefaultAvatarSize     = 120
	DefaultAssetsDirName  = "assets"
	DefaultMaxConcurrency = 8
	DefaultUserAgent      = "go-topic2html/1.0"

	builtinStyleName  = "builtin"
	toggleScriptName  = "theme-toggle"
	bundledCSSRelPath = "css/site.css"
)

// serviceConfig holds construction-time settings.
type serviceConfig struct {
	userAgent      string
	maxConcurrency int
}

// Option customizes a Service.
type Option func(*Service)

// WithUserAgent sets the HTTP User-Agent for all downloads.
func WithUserAgent(ua string) Option {
	return func(s *Service) {
		if ua != "" {
			s.cfg.userAgent = ua
		}
	}
}

// WithMaxConcurrency caps simultaneous downloads.
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cfg.maxConcurrency = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service renders topics into offline artifacts. One Service may run many
// renders; each render gets its own asset store.
type Service struct {
	cfg    serviceConfig
	logger *slog.Logger
}

// New creates a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: serviceConfig{
			userAgent:      DefaultUserAgent,
			maxConcurrency: DefaultMaxConcurrency,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render produces the offline artifact for one topic. On success the output
// is fully written and proven offline-safe; on failure nothing useful is
// guaranteed to exist and the run must be repeated.
func (s *Service) Render(ctx context.Context, input Input) error {
	input, err := normalizeInput(input)
	if err != nil {
		return err
	}

	fetcher := NewFetcher(s.cfg.userAgent, s.cfg.maxConcurrency, s.logger)

	if input.Mode == ModeSingle {
		return s.renderSingle(ctx, input, fetcher)
	}
	return s.renderDir(ctx, input, fetcher)
}

// normalizeInput validates required fields and fills defaults.
func normalizeInput(input Input) (Input, error) {
	if input.Topic == nil {
		return input, ErrNilTopic
	}
	if err := input.Topic.Validate(); err != nil {
		return input, err
	}
	if input.BaseURL == nil {
		return input, ErrNilBaseURL
	}
	if input.BaseURL.Scheme != "http" && input.BaseURL.Scheme != "https" {
		return input, fmt.Errorf("%w: %q", ErrBaseURLScheme, input.BaseURL.Scheme)
	}
	if input.AvatarSize == 0 {
		input.AvatarSize = DefaultAvatarSize
	}
	if input.AvatarSize < 0 {
		return input, fmt.Errorf("%w: %d", ErrAvatarSize, input.AvatarSize)
	}
	if input.AssetsDirName == "" {
		input.AssetsDirName = DefaultAssetsDirName
	}
	if !fileutil.IsBareName(input.AssetsDirName) {
		return input, fmt.Errorf("%w: %q", ErrAssetsDirName, input.AssetsDirName)
	}
	if input.OutPath == "" {
		if input.Mode == ModeSingle {
			input.OutPath = fmt.Sprintf("topic-%d.html", input.Topic.ID)
		} else {
			input.OutPath = "out"
		}
	}
	return input, nil
}

func (s *Service) renderDir(ctx context.Context, input Input, fetcher *Fetcher) error {
	outDir := input.OutPath
	if err := fileutil.EnsureDir(outDir); err != nil {
		return err
	}

	store := NewDirStore(outDir, input.AssetsDirName, fetcher)

	s.logger.Info("bundling css")
	cssText, err := s.bundleCSS(ctx, input, store)
	if err != nil {
		return err
	}
	cssRel, err := writeCSSFile(outDir, input.AssetsDirName, cssText)
	if err != nil {
		return err
	}

	s.logger.Info("rendering posts", "count", input.Topic.RenderablePostCount())
	posts, err := RenderPosts(ctx, input.Topic, input.BaseURL, input.AvatarSize, store)
	if err != nil {
		return err
	}

	page, err := s.assemblePage(input, posts, "", cssRel)
	if err != nil {
		return err
	}

	if err := AssertStrictOffline(page, cssText); err != nil {
		return err
	}

	htmlPath := filepath.Join(outDir, fmt.Sprintf("topic-%d.html", input.Topic.ID))
	if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", htmlPath, err)
	}
	s.logger.Info("wrote artifact", "path", htmlPath)
	return nil
}

func (s *Service) renderSingle(ctx context.Context, input Input, fetcher *Fetcher) error {
	outPath := input.OutPath
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := fileutil.EnsureDir(dir); err != nil {
			return err
		}
	}

	store := NewSingleStore(fetcher)

	s.logger.Info("bundling css")
	cssText, err := s.bundleCSS(ctx, input, store)
	if err != nil {
		return err
	}

	s.logger.Info("rendering posts", "count", input.Topic.RenderablePostCount())
	posts, err := RenderPosts(ctx, input.Topic, input.BaseURL, input.AvatarSize, store)
	if err != nil {
		return err
	}

	page, err := s.assemblePage(input, posts, cssText, "")
	if err != nil {
		return err
	}

	if err := AssertStrictOffline(page, cssText); err != nil {
		return err
	}

	if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	s.logger.Info("wrote artifact", "path", outPath)
	return nil
}

// bundleCSS produces the stylesheet text: the embedded theme, explicit local
// files, or stylesheets discovered from the base URL, in that precedence.
func (s *Service) bundleCSS(ctx context.Context, input Input, store *AssetStore) (string, error) {
	if input.BuiltinTheme {
		if len(input.CSSPaths) > 0 {
			s.logger.Warn("builtin theme selected; ignoring explicit stylesheets",
				"count", len(input.CSSPaths))
		}
		return assets.LoadStyle(builtinStyleName)
	}

	bundler := NewCSSBundler(input.BaseURL, store, s.logger)

	if len(input.CSSPaths) > 0 {
		origins := make([]CSSOrigin, len(input.CSSPaths))
		for i, p := range input.CSSPaths {
			origins[i] = LocalOrigin(p)
		}
		return bundler.Bundle(ctx, origins)
	}

	origins, err := bundler.DiscoverOrigins(ctx)
	if err != nil {
		return "", err
	}
	if len(origins) == 0 {
		return "", fmt.Errorf("%w: %s", ErrDiscoveryEmpty, input.BaseURL)
	}
	s.logger.Info("auto-discovered stylesheets", "count", len(origins))
	return bundler.Bundle(ctx, origins)
}

// assemblePage builds the final document in the layout the input selects.
func (s *Service) assemblePage(input Input, posts []RenderedPost, css, cssHref string) (string, error) {
	if input.BuiltinTheme {
		toggleJS, err := assets.LoadScript(toggleScriptName)
		if err != nil {
			return "", err
		}
		return BuildHTMLMinimal(input.Topic, posts, css, cssHref, toggleJS)
	}
	return BuildHTML(input.Topic, posts, css, cssHref)
}

// writeCSSFile stores the bundled stylesheet under the asset tree and
// returns its path relative to the output directory.
func writeCSSFile(outDir, assetsDirName, css string) (string, error) {
	rel := assetsDirName + "/" + bundledCSSRelPath
	abs := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := fileutil.EnsureDir(filepath.Dir(abs)); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, []byte(css), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	return rel, nil
}
