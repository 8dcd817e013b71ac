package datasets

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/schema"
	"github.com/JonMunkholm/opendata/internal/table"
)

// FileLoader loads one file reference.
type FileLoader interface {
	Load(ctx context.Context, ref loader.FileRef) (*table.Table, error)
}

// AggregateConfig parameterizes AggregateFiles.
type AggregateConfig struct {
	// InfoColumns are provenance columns copied from each file reference.
	InfoColumns []string
	// Aliases rename original column names to schema names.
	Aliases Aliases
	// DedupExtra columns are compared with the schema columns when dropping
	// duplicates.
	DedupExtra []string
}

// AggregateResult is the outcome of AggregateFiles.
type AggregateResult struct {
	Data       *table.Table
	FilesOut   []FileOut
	ColumnsOut []ColumnOut
	Stats      Stats
}

// AggregateFiles loads every readable file, keeps its schema columns and
// stacks the results. A failing file is recorded in FilesOut and never stops
// the batch. The output holds the schema columns then the info columns,
// deduplicated on schema columns plus DedupExtra and cast to schema types.
func AggregateFiles(ctx context.Context, fl FileLoader, files []loader.FileRef, s *schema.Schema, cfg AggregateConfig) *AggregateResult {
	log := logging.FromContext(ctx)
	res := &AggregateResult{Stats: Stats{FilesIn: len(files)}}

	readable, out := PartitionReadable(files)
	res.FilesOut = append(res.FilesOut, out...)
	log.Info("readable files selected", "readable", len(readable), "out", len(out))

	info := make(map[string]bool, len(cfg.InfoColumns))
	for _, c := range cfg.InfoColumns {
		info[c] = true
	}

	parts := []*table.Table{table.New(append(s.Names(), cfg.InfoColumns...)...)}
	for _, ref := range readable {
		flog := log.With("url", ref.URL, "format", ref.ResolvedFormat())

		t, err := fl.Load(ctx, ref)
		if err != nil {
			flog.Error("failed to load file", "error", err, "code", core.ErrorCode(err))
			res.FilesOut = append(res.FilesOut, fileOut(ref, err))
			continue
		}
		res.Stats.FilesLoaded++

		t = tagProvenance(t, ref, cfg.InfoColumns)
		kept, dropped, err := conformFile(t, s, cfg.Aliases, info, ref.URL)
		if err != nil {
			flog.Warn("no column in common with schema", "columns", t.Width())
			res.FilesOut = append(res.FilesOut, fileOut(ref, err))
			continue
		}
		res.ColumnsOut = append(res.ColumnsOut, dropped...)
		parts = append(parts, kept)
		flog.Info("file normalized", "rows", kept.Len(),
			"schema_columns", kept.Width()-len(cfg.InfoColumns), "columns_out", len(dropped))
	}

	data := table.Concat(parts...)
	subset := append(s.Names(), cfg.DedupExtra...)
	deduped := data.Dedup(subset...)
	res.Stats.Duplicates = data.Len() - deduped.Len()

	res.Data = CastColumns(deduped, func(col string) (core.FieldType, bool) {
		p, ok := s.Lookup(col)
		return p.Type, ok
	})

	res.Stats.FilesOut = len(res.FilesOut)
	res.Stats.ColumnsOut = len(res.ColumnsOut)
	res.Stats.Rows = res.Data.Len()
	res.Stats.NullCounts = res.Data.NullCounts()
	log.Info("files aggregated",
		"files_in", res.Stats.FilesIn,
		"files_loaded", res.Stats.FilesLoaded,
		"files_out", res.Stats.FilesOut,
		"columns_out", res.Stats.ColumnsOut,
		"rows", res.Stats.Rows,
		"duplicates", res.Stats.Duplicates)
	return res
}

// ReadableFormats are the declared formats the aggregator loads. Anything
// else, including formats the loader could parse such as "excel", is recorded
// as out of scope.
var ReadableFormats = []string{"csv", "xls", "xlsx", "json", "zip"}

// PartitionReadable splits files on whether their format is in
// ReadableFormats. A file without a declared format is judged on the format
// inferred from its URL.
func PartitionReadable(files []loader.FileRef) (readable []loader.FileRef, out []FileOut) {
	for _, f := range files {
		format := f.ResolvedFormat()
		if slices.Contains(ReadableFormats, format) {
			readable = append(readable, f)
			continue
		}
		out = append(out, fileOut(f, fmt.Errorf("%w %q", core.ErrUnsupportedFormat, format)))
	}
	return readable, out
}

// tagProvenance copies info values of ref into constant columns. url, format
// and title fall back to the reference fields.
func tagProvenance(t *table.Table, ref loader.FileRef, cols []string) *table.Table {
	for _, c := range cols {
		v, ok := ref.Info[c]
		if !ok {
			switch c {
			case "url":
				v, ok = ref.URL, true
			case "format":
				v, ok = ref.ResolvedFormat(), true
			case "title":
				v, ok = ref.Title, ref.Title != ""
			}
		}
		if ok {
			t = t.WithConst(c, v)
		}
	}
	return t
}

// conformFile keeps the columns of t matching the schema (case-insensitive)
// or naming an info column, renamed to their canonical schema names. Info
// columns are never renamed and do not count as schema overlap.
func conformFile(t *table.Table, s *schema.Schema, aliases Aliases, info map[string]bool, filename string) (*table.Table, []ColumnOut, error) {
	t = aliases.Apply(t.MergeDuplicateColumns())

	canonical := func(c string) (string, bool) {
		if info[c] {
			return "", false
		}
		return s.Canonical(c)
	}

	common := 0
	for _, c := range t.Columns() {
		if _, ok := canonical(c); ok {
			common++
		}
	}
	if common == 0 {
		return nil, nil, fmt.Errorf("%s: %w", filename, core.ErrNoCommonColumns)
	}

	var dropped []ColumnOut
	kept := t.Keep(func(c string) bool {
		if _, ok := canonical(c); ok || info[c] {
			return true
		}
		dropped = append(dropped, ColumnOut{
			Filename:   filename,
			ColumnName: c,
			ColumnType: t.Dtype(c),
			NonNull:    t.NonNull(c),
		})
		return false
	})
	kept = kept.RenameFunc(func(c string) string {
		if canon, ok := canonical(c); ok {
			return canon
		}
		return c
	})
	return kept.MergeDuplicateColumns(), dropped, nil
}

// FileRefs builds file references from a dataset listing table. urlColumn
// and formatColumn name the listing columns; every listing column is kept in
// Info.
func FileRefs(listing *table.Table, urlColumn, formatColumn, titleColumn string) []loader.FileRef {
	refs := make([]loader.FileRef, 0, listing.Len())
	cols := listing.Columns()
	for _, r := range listing.Rows() {
		u, ok := r.String(urlColumn)
		if !ok {
			continue
		}
		ref := loader.FileRef{URL: strings.TrimSpace(u), Info: make(map[string]any, len(cols))}
		if f, ok := r.String(formatColumn); ok {
			ref.Format = f
		}
		if tt, ok := r.String(titleColumn); ok {
			ref.Title = tt
		}
		for _, c := range cols {
			if v := r.Get(c); !table.IsNull(v) {
				ref.Info[c] = v
			}
		}
		refs = append(refs, ref)
	}
	return refs
}
