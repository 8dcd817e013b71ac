package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// DirSink writes <Dir>/<name>.csv.
type DirSink struct {
	Dir string
}

// NewDirSink returns a sink writing into dir, creating it if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

// Path returns the file written for name.
func (d *DirSink) Path(name string) string {
	return filepath.Join(d.Dir, baseName(name)+".csv")
}

func (d *DirSink) Write(ctx context.Context, name string, t *table.Table) error {
	data, err := EncodeCSV(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := d.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.FromContext(ctx).Info("table written", "path", path, "rows", t.Len(), "columns", t.Width())
	return nil
}
