package topic2html

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// OutputMode selects how the rendered artifact is laid out on disk.
type OutputMode int

const (
	// ModeDir writes an HTML file plus a deduplicated asset tree.
	ModeDir OutputMode = iota

	// ModeSingle writes one HTML file with every asset inlined as a data URI.
	ModeSingle
)

// String returns the CLI-facing name of the mode.
func (m OutputMode) String() string {
	switch m {
	case ModeDir:
		return "dir"
	case ModeSingle:
		return "single"
	default:
		return "unknown"
	}
}

// ParseOutputMode converts a CLI mode string to an OutputMode.
func ParseOutputMode(s string) (OutputMode, error) {
	switch s {
	case "dir":
		return ModeDir, nil
	case "single":
		return ModeSingle, nil
	default:
		return ModeDir, ErrInvalidMode
	}
}

// Input holds all per-render parameters.
type Input struct {
	// Topic is the parsed topic document. Required.
	Topic *Topic

	// BaseURL is the absolute site URL used to resolve relative references
	// and to recognize same-site permalinks. Required.
	BaseURL *url.URL

	// CSSPaths lists local stylesheet files to bundle. When empty (and
	// BuiltinTheme is off), stylesheets are discovered from BaseURL's HTML.
	CSSPaths []string

	// BuiltinTheme renders with the embedded minimal light/dark theme and
	// skips both CSSPaths and discovery.
	BuiltinTheme bool

	// Mode selects the output layout.
	Mode OutputMode

	// OutPath is the output directory (ModeDir) or HTML file path
	// (ModeSingle). Empty selects "out" or "topic-<id>.html" respectively.
	OutPath string

	// AvatarSize substitutes the {size} placeholder in avatar templates.
	// Zero selects the default (120).
	AvatarSize int

	// AssetsDirName names the asset tree directory in ModeDir.
	// Empty selects "assets".
	AssetsDirName string
}

// AssetKind classifies an asset for storage layout and MIME fallbacks.
// It does not affect how the asset is fetched.
type AssetKind int

const (
	KindAvatar AssetKind = iota
	KindImage
	KindFont
	KindOther
)

// subdir returns the storage subdirectory for the kind.
func (k AssetKind) subdir() string {
	switch k {
	case KindAvatar:
		return "avatar"
	case KindImage:
		return "img"
	case KindFont:
		return "font"
	default:
		return "other"
	}
}

// AssetSource identifies where an asset's bytes come from: a remote URL or a
// local filesystem path. Exactly one of the two is set.
type AssetSource struct {
	url  *url.URL
	path string
}

// RemoteSource builds a source for an absolute URL.
func RemoteSource(u *url.URL) AssetSource { return AssetSource{url: u} }

// LocalSource builds a source for a filesystem path.
func LocalSource(p string) AssetSource { return AssetSource{path: p} }

// IsRemote reports whether the source is a URL.
func (s AssetSource) IsRemote() bool { return s.url != nil }

// Key returns the cache key: the absolute URL string for remote sources, a
// path-prefixed string for local ones. Two requests with equal keys share one
// fetch-and-store operation per run.
func (s AssetSource) Key() string {
	if s.url != nil {
		return s.url.String()
	}
	return "file:" + s.path
}

// String returns the source for error context.
func (s AssetSource) String() string {
	if s.url != nil {
		return s.url.String()
	}
	return s.path
}

// AssetRequest asks the store for one asset.
type AssetRequest struct {
	Kind   AssetKind
	Source AssetSource
}

// CSSOrigin identifies where a stylesheet's text and its relative-URL base
// were obtained from: a local file or a remote URL. Distinct from
// AssetSource: origins are stylesheets being bundled, not assets being
// cached.
type CSSOrigin struct {
	url  *url.URL
	path string
}

// RemoteOrigin builds an origin for a remote stylesheet.
func RemoteOrigin(u *url.URL) CSSOrigin { return CSSOrigin{url: u} }

// LocalOrigin builds an origin for a local stylesheet file.
func LocalOrigin(p string) CSSOrigin { return CSSOrigin{path: p} }

// key canonicalizes the origin for the visited set.
func (o CSSOrigin) key() string {
	if o.url != nil {
		return o.url.String()
	}
	return "file:" + o.path
}

// String returns the origin for error context.
func (o CSSOrigin) String() string {
	if o.url != nil {
		return o.url.String()
	}
	return o.path
}

// resolvedAsset is the transient result of resolving a url()/@import
// reference against its origin, before it becomes an AssetRequest.
type resolvedAsset struct {
	url  *url.URL
	path string
}

func (r resolvedAsset) request(kind AssetKind) AssetRequest {
	if r.url != nil {
		return AssetRequest{Kind: kind, Source: RemoteSource(r.url)}
	}
	return AssetRequest{Kind: kind, Source: LocalSource(r.path)}
}

// ext returns the lowercased path extension without the dot.
func (r resolvedAsset) ext() string {
	var p string
	if r.url != nil {
		p = r.url.Path
	} else {
		p = r.path
	}
	e := path.Ext(filepath.ToSlash(p))
	if e == "" {
		return ""
	}
	return strings.ToLower(e[1:])
}
