package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/table"
)

func init() {
	Register("zip", parseZip)
}

// parseZip parses the first entry, in archive order, whose extension has a
// registered parser. Nested archives are not opened.
func parseZip(data []byte, opts Options) (*table.Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		format := NormalizeFormat(path.Ext(f.Name))
		if format == "zip" {
			continue
		}
		parse, ok := Lookup(format)
		if !ok {
			continue
		}

		content, err := readEntry(f, opts.MaxBytes)
		if err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", f.Name, err)
		}
		entryOpts := opts
		entryOpts.Name = f.Name
		return parse(content, entryOpts)
	}
	return nil, fmt.Errorf("%w: no readable entry in archive", core.ErrUnsupportedFormat)
}

func readEntry(f *zip.File, max int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return core.ReadAllLimited(core.SkipBOM(rc), max)
}
