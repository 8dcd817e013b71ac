// Package loader turns file references into tables. Formats are handled by
// parsers registered at init time; bytes come from a Source such as Fetcher.
package loader

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Source returns the raw bytes behind a reference.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FileRef describes one file of a dataset listing.
type FileRef struct {
	URL    string
	Format string // declared format; empty means inferred from the URL
	Title  string
	Root   string // JSON records key, see Options.Root
	// Info holds the provenance values copied into every row of the file.
	Info map[string]any
}

// ResolvedFormat returns the declared format, or the one inferred from the URL.
func (r FileRef) ResolvedFormat() string {
	if f := NormalizeFormat(r.Format); f != "" {
		return f
	}
	return FormatFromURL(r.URL)
}

// Factory loads file references.
type Factory struct {
	src Source
	// MaxBytes caps the size of archive entries, like the fetch limit caps
	// downloads. 0 means no cap.
	MaxBytes int64
}

// NewFactory returns a factory reading through src.
func NewFactory(src Source) *Factory {
	return &Factory{src: src}
}

// Load fetches and parses one file.
func (f *Factory) Load(ctx context.Context, ref FileRef) (*table.Table, error) {
	format := ref.ResolvedFormat()
	parse, ok := Lookup(format)
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrUnsupportedFormat, format)
	}

	data, err := f.src.Fetch(ctx, ref.URL)
	if err != nil {
		return nil, err
	}

	t, err := parse(data, Options{Root: ref.Root, Name: ref.URL, MaxBytes: f.MaxBytes})
	if err != nil {
		return nil, fmt.Errorf("parse %s as %s: %w", ref.URL, format, err)
	}
	if t.Empty() {
		return nil, fmt.Errorf("%s: %w", ref.URL, core.ErrEmptyFile)
	}

	logging.WithFields(ctx, "url", ref.URL, "format", format).Debug("file loaded",
		"rows", t.Len(), "columns", t.Width())
	return t, nil
}

// FormatFromURL infers a format from the URL path extension.
func FormatFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return NormalizeFormat(path.Ext(u))
}
