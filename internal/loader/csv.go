package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/table"
)

func init() {
	Register("csv", parseCSV)
}

// parseCSV reads a delimited file with a header row. Cells stay text; typing
// happens when the schema is applied. Empty cells are null.
func parseCSV(data []byte, _ Options) (*table.Table, error) {
	data = core.ToUTF8(data)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = core.SniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, core.ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := table.New(headerNames(header)...)
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			if v = strings.TrimSpace(v); v != "" {
				row[i] = v
			}
		}
		t.AppendRow(row)
	}
	return t, nil
}

// headerNames cleans header cells and names empty ones by position.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		h = core.CleanCell(h)
		if h == "" {
			h = fmt.Sprintf("unnamed_%d", i)
		}
		names[i] = h
	}
	return names
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
