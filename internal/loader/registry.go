package loader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JonMunkholm/opendata/internal/table"
)

// Options carry per-file parsing hints.
type Options struct {
	// Root names the JSON key holding the records. Empty means the first
	// array of objects found at the top level.
	Root string
	// Name is the file name or URL, used in error messages and to pick an
	// archive entry.
	Name string
	// MaxBytes caps decompressed archive entries. 0 means no cap.
	MaxBytes int64
}

// ParseFunc turns raw file content into a table.
type ParseFunc func(data []byte, opts Options) (*table.Table, error)

var (
	registry   = make(map[string]ParseFunc)
	registryMu sync.RWMutex
)

// Register adds a parser for a format name.
// Panics if the format is already registered.
func Register(format string, fn ParseFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	format = NormalizeFormat(format)
	if _, exists := registry[format]; exists {
		panic(fmt.Sprintf("format already registered: %s", format))
	}
	registry[format] = fn
}

// Lookup returns the parser of a format.
// Returns false if the format is not readable.
func Lookup(format string) (ParseFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := registry[NormalizeFormat(format)]
	return fn, ok
}

// NormalizeFormat lower-cases a format and strips a leading dot.
func NormalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}
