package datasets

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Alias dictionary columns.
const (
	aliasOriginal = "original_name"
	aliasOfficial = "official_name"
)

// Aliases maps original column names to official schema names.
type Aliases map[string]string

// LoadAliases reads the alias dictionary at ref.
func LoadAliases(ctx context.Context, src loader.Source, ref string) (Aliases, error) {
	data, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	a, err := ParseAliases(data)
	if err != nil {
		return nil, fmt.Errorf("aliases %s: %w", ref, err)
	}
	return a, nil
}

// ParseAliases reads a ';'-separated file with original_name and
// official_name columns. A repeated original name keeps its first mapping.
func ParseAliases(data []byte) (Aliases, error) {
	r := csv.NewReader(bytes.NewReader(core.ToUTF8(data)))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return Aliases{}, nil
	}
	if err != nil {
		return nil, err
	}
	from, to := -1, -1
	for i, h := range header {
		switch strings.ToLower(core.CleanCell(h)) {
		case aliasOriginal:
			from = i
		case aliasOfficial:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return nil, fmt.Errorf("header must contain %s and %s", aliasOriginal, aliasOfficial)
	}

	a := make(Aliases)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if from >= len(rec) || to >= len(rec) {
			continue
		}
		o, n := core.CleanCell(rec[from]), core.CleanCell(rec[to])
		if o == "" || n == "" || o == n {
			continue
		}
		if _, dup := a[o]; !dup {
			a[o] = n
		}
	}
	return a, nil
}

// Apply renames aliased columns. When the official column already exists,
// the alias only fills its null cells and is dropped.
func (a Aliases) Apply(t *table.Table) *table.Table {
	for _, col := range t.Columns() {
		to, ok := a[col]
		if !ok || !t.Has(col) {
			continue
		}
		if !t.Has(to) {
			t = t.Rename(map[string]string{col: to})
			continue
		}
		target := t.Values(to)
		source := t.Values(col)
		for i, v := range target {
			if table.IsNull(v) {
				target[i] = source[i]
			}
		}
		t = t.DropColumns(col).With(to, target)
	}
	return t
}
