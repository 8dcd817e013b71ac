package datasets

import (
	"sort"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/table"
)

// FileOut records a file excluded from an aggregation.
type FileOut struct {
	URL    string
	Format string
	Title  string
	Reason string
	Code   string // error catalog code, see core.MapError
}

func fileOut(ref loader.FileRef, err error) FileOut {
	return FileOut{
		URL:    ref.URL,
		Format: ref.ResolvedFormat(),
		Title:  ref.Title,
		Reason: err.Error(),
		Code:   core.ErrorCode(err),
	}
}

// ColumnOut records a column dropped because it is not in the schema.
type ColumnOut struct {
	Filename   string
	ColumnName string
	ColumnType string
	NonNull    int
}

// FilesOutTable renders excluded files as a table.
func FilesOutTable(files []FileOut) *table.Table {
	t := table.New("url", "format", "title", "reason", "code")
	for _, f := range files {
		t.AppendRow([]any{f.URL, f.Format, f.Title, f.Reason, f.Code})
	}
	return t
}

// ColumnsOutTable renders dropped columns as a table.
func ColumnsOutTable(cols []ColumnOut) *table.Table {
	t := table.New("filename", "column_name", "column_type", "nb_non_null_values")
	for _, c := range cols {
		t.AppendRow([]any{c.Filename, c.ColumnName, c.ColumnType, int64(c.NonNull)})
	}
	return t
}

// Stats summarizes an aggregation.
type Stats struct {
	FilesIn     int
	FilesLoaded int
	FilesOut    int
	ColumnsOut  int
	Rows        int
	Duplicates  int
	// NullCounts per output column, after casting.
	NullCounts map[string]int
}

// CodeCounts counts excluded files per error code, sorted by code.
func CodeCounts(files []FileOut) []CodeCount {
	counts := make(map[string]int)
	for _, f := range files {
		counts[f.Code]++
	}
	out := make([]CodeCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, CodeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CodeCount is one entry of CodeCounts.
type CodeCount struct {
	Code  string
	Count int
}
