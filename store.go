package topic2html

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/alnah/go-topic2html/internal/fileutil"
)

// AssetStore is a single-flight, content-addressed cache mapping asset
// requests to their encoded representation: a relative path in ModeDir, a
// data: URI in ModeSingle. It lives for exactly one render invocation.
//
// Entries settle once. Concurrent Get calls for the same key share one
// fetch-and-store operation and observe the same value. Errors settle too
// and stay cached for the remainder of the run.
type AssetStore struct {
	mode          OutputMode
	outDir        string
	assetsDirName string
	fetcher       *Fetcher

	// mu guards lookup-or-insert only; cells settle outside the lock so a
	// slow fetch never blocks lookups for other keys.
	mu      sync.Mutex
	entries map[string]*storeCell
}

// storeCell is a write-once completion cell. The driver closes done exactly
// once after setting value/err; waiters block on done.
type storeCell struct {
	done  chan struct{}
	value string
	err   error
}

// NewDirStore creates a store that writes assets under
// outDir/assetsDirName/<kind>/<hash>.<ext> and returns paths relative to
// outDir.
func NewDirStore(outDir, assetsDirName string, fetcher *Fetcher) *AssetStore {
	return &AssetStore{
		mode:          ModeDir,
		outDir:        outDir,
		assetsDirName: assetsDirName,
		fetcher:       fetcher,
		entries:       make(map[string]*storeCell),
	}
}

// NewSingleStore creates a store that encodes every asset as a data: URI.
func NewSingleStore(fetcher *Fetcher) *AssetStore {
	return &AssetStore{
		mode:    ModeSingle,
		fetcher: fetcher,
		entries: make(map[string]*storeCell),
	}
}

// Mode returns the store's output mode.
func (s *AssetStore) Mode() OutputMode { return s.mode }

// AssetsDirName returns the asset tree directory name (ModeDir).
func (s *AssetStore) AssetsDirName() string { return s.assetsDirName }

// Get returns the encoded representation for the requested asset, fetching
// and storing it on first use. For any number of concurrent callers sharing
// a key, exactly one fetch/read/write executes.
func (s *AssetStore) Get(ctx context.Context, req AssetRequest) (string, error) {
	key := req.Source.Key()

	s.mu.Lock()
	cell, ok := s.entries[key]
	if !ok {
		cell = &storeCell{done: make(chan struct{})}
		s.entries[key] = cell
	}
	s.mu.Unlock()

	if !ok {
		// This caller is the driver; the expensive work runs outside the lock.
		cell.value, cell.err = s.fetchAndStore(ctx, req)
		close(cell.done)
		return cell.value, cell.err
	}

	select {
	case <-cell.done:
		return cell.value, cell.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// FetchRemoteText downloads a resource and returns it as UTF-8 text. Used
// for HTML and CSS text, bypassing the asset cache but still bounded by the
// fetcher's permit pool.
func (s *AssetStore) FetchRemoteText(ctx context.Context, u *url.URL) (string, error) {
	body, _, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: %s", ErrNotUTF8, u)
	}
	return string(body), nil
}

// fetchAndStore loads the asset bytes, infers MIME and extension, and
// encodes per output mode.
func (s *AssetStore) fetchAndStore(ctx context.Context, req AssetRequest) (string, error) {
	var (
		body []byte
		hint string
	)
	if req.Source.IsRemote() {
		b, headers, err := s.fetcher.Fetch(ctx, req.Source.url)
		if err != nil {
			return "", err
		}
		body = b
		hint = headers.Get("Content-Type")
	} else {
		b, err := os.ReadFile(req.Source.path)
		if err != nil {
			return "", fmt.Errorf("read local asset %s: %w", req.Source.path, err)
		}
		body = b
	}

	mime, ext := sniffMIMEAndExt(body, hint, req)

	if s.mode == ModeSingle {
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body), nil
	}
	return s.writeAssetFile(req.Kind, body, ext)
}

// writeAssetFile stores bytes content-addressed under the asset tree and
// returns the path relative to the output directory. Identical bytes from
// different sources collapse to one file; an existing file is not rewritten.
func (s *AssetStore) writeAssetFile(kind AssetKind, body []byte, ext string) (string, error) {
	sum := sha256.Sum256(body)
	rel := filepath.ToSlash(filepath.Join(s.assetsDirName, kind.subdir(), hex.EncodeToString(sum[:])+"."+ext))
	abs := filepath.Join(s.outDir, filepath.FromSlash(rel))

	if err := fileutil.EnsureDir(filepath.Dir(abs)); err != nil {
		return "", err
	}
	if !fileutil.FileExists(abs) {
		if err := os.WriteFile(abs, body, 0o644); err != nil {
			return "", fmt.Errorf("write asset %s: %w", abs, err)
		}
	}
	return rel, nil
}

// mimeTableEntry maps a Content-Type value to its canonical (mime, ext).
type mimeTableEntry struct{ mime, ext string }

// knownMIMEs maps Content-Type header values (parameters stripped) to the
// canonical MIME and file extension.
var knownMIMEs = map[string]mimeTableEntry{
	"image/png":              {"image/png", "png"},
	"image/jpeg":             {"image/jpeg", "jpg"},
	"image/gif":              {"image/gif", "gif"},
	"image/webp":             {"image/webp", "webp"},
	"image/svg+xml":          {"image/svg+xml", "svg"},
	"font/woff2":             {"font/woff2", "woff2"},
	"font/woff":              {"font/woff", "woff"},
	"application/font-woff2": {"font/woff2", "woff2"},
	"application/font-woff":  {"font/woff", "woff"},
}

// extMIMEs maps URL path extensions to (mime, ext) for remote sources whose
// bytes and headers were inconclusive.
var extMIMEs = map[string]mimeTableEntry{
	"png":   {"image/png", "png"},
	"jpg":   {"image/jpeg", "jpg"},
	"jpeg":  {"image/jpeg", "jpg"},
	"gif":   {"image/gif", "gif"},
	"webp":  {"image/webp", "webp"},
	"svg":   {"image/svg+xml", "svg"},
	"woff2": {"font/woff2", "woff2"},
	"woff":  {"font/woff", "woff"},
	"ttf":   {"font/ttf", "ttf"},
	"otf":   {"font/otf", "otf"},
	"eot":   {"application/vnd.ms-fontobject", "eot"},
}

// sniffMIMEAndExt infers (MIME, extension) in precedence order: Content-Type
// header, magic bytes, remote URL extension, octet-stream fallback.
func sniffMIMEAndExt(body []byte, contentType string, req AssetRequest) (string, string) {
	if ct := strings.TrimSpace(strings.Split(contentType, ";")[0]); ct != "" {
		if e, ok := knownMIMEs[ct]; ok {
			return e.mime, e.ext
		}
		// Font CDNs commonly mislabel font payloads as octet-stream.
		if ct == "application/octet-stream" && req.Kind == KindFont {
			return "font/woff2", "woff2"
		}
	}

	if mime, ext, ok := sniffMagic(body); ok {
		return mime, ext
	}

	if req.Source.IsRemote() {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(req.Source.url.Path), "."))
		if e, ok := extMIMEs[ext]; ok {
			return e.mime, e.ext
		}
		if req.Kind == KindFont {
			return "font/woff2", "woff2"
		}
	}

	return "application/octet-stream", "bin"
}

// sniffMagic recognizes common image and font formats from leading bytes.
func sniffMagic(b []byte) (string, string, bool) {
	switch {
	case len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png", "png", true
	case len(b) >= 3 && b[0] == 0xff && b[1] == 0xd8 && b[2] == 0xff:
		return "image/jpeg", "jpg", true
	case len(b) >= 6 && (string(b[:6]) == "GIF87a" || string(b[:6]) == "GIF89a"):
		return "image/gif", "gif", true
	case len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		return "image/webp", "webp", true
	case len(b) >= 4 && string(b[:4]) == "wOFF":
		return "font/woff", "woff", true
	case len(b) >= 4 && string(b[:4]) == "wOF2":
		return "font/woff2", "woff2", true
	case len(b) >= 4 && string(b[:4]) == "OTTO":
		return "font/otf", "otf", true
	case len(b) >= 4 && b[0] == 0 && b[1] == 1 && b[2] == 0 && b[3] == 0:
		return "font/ttf", "ttf", true
	}
	return "", "", false
}
