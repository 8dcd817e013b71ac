package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/opendata/internal/config"
	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/datasets"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/schema"
	"github.com/JonMunkholm/opendata/internal/table"
)

// RunSubventions aggregates the grant files against their schema and writes
// the data with both audit tables. Individual file failures never abort the
// run; only the schema, alias and listing downloads do.
func RunSubventions(ctx context.Context, env *Env, p *config.Pipeline) (*datasets.AggregateResult, error) {
	sc := p.Subventions
	if sc == nil {
		return nil, errors.New("pipeline has no subventions section")
	}
	log := logging.WithFields(ctx, "dataset", "subventions")

	s, err := schema.Load(ctx, env.Source, sc.Schema.URL, sc.Schema.Root)
	if err != nil {
		return nil, err
	}
	log.Info("schema loaded", "url", sc.Schema.URL, "properties", s.Len())

	var aliases datasets.Aliases
	if sc.SchemaDictFile != "" {
		if aliases, err = datasets.LoadAliases(ctx, env.Source, sc.SchemaDictFile); err != nil {
			return nil, err
		}
		log.Info("aliases loaded", "count", len(aliases))
	}

	files, err := fileRefs(ctx, env, p)
	if err != nil {
		return nil, err
	}

	res := datasets.AggregateFiles(ctx, env.Factory, files, s, datasets.AggregateConfig{
		InfoColumns: sc.FileInfoColumns,
		Aliases:     aliases,
		DedupExtra:  sc.DedupColumns,
	})

	outputs := []struct {
		name string
		data *table.Table
	}{
		{sc.Output, res.Data},
		{sc.FilesOutOutput, datasets.FilesOutTable(res.FilesOut)},
		{sc.ColumnsOutOutput, datasets.ColumnsOutTable(res.ColumnsOut)},
	}
	for _, o := range outputs {
		if err := env.Sink.Write(ctx, o.name, o.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", o.name, err)
		}
	}

	for _, c := range datasets.CodeCounts(res.FilesOut) {
		log.Info("files out", "code", c.Code, "count", c.Count)
	}
	return res, nil
}

// fileRefs gathers the configured file entries and the rows of the listing,
// restricted to the communities scope when the listing names a scope column.
func fileRefs(ctx context.Context, env *Env, p *config.Pipeline) ([]loader.FileRef, error) {
	sc := p.Subventions
	refs := make([]loader.FileRef, 0, len(sc.Files))
	for _, f := range sc.Files {
		info := make(map[string]any, len(f.Info))
		for k, v := range f.Info {
			info[k] = v
		}
		refs = append(refs, loader.FileRef{URL: f.URL, Format: f.Format, Title: f.Title, Info: info})
	}

	l := sc.Listing
	if l == nil || l.URL == "" {
		return refs, nil
	}
	listing, err := env.Factory.Load(ctx, loader.FileRef{URL: l.URL})
	if err != nil {
		return nil, fmt.Errorf("load listing %s: %w", l.URL, err)
	}

	if l.ScopeColumn != "" {
		scope, err := loadScope(ctx, env, p)
		if err != nil {
			return nil, err
		}
		before := listing.Len()
		// The normalized SIREN is what the file references carry in Info.
		listing = listing.MapColumn(l.ScopeColumn, func(v any) any {
			if siren, ok := core.NormalizeSIREN(v); ok {
				return siren
			}
			return nil
		}).Filter(func(r table.Row) bool {
			siren, ok := r.String(l.ScopeColumn)
			if !ok {
				return false
			}
			_, in := scope.Lookup(siren)
			return in
		})
		logging.FromContext(ctx).Info("listing restricted to scope",
			"listed", before, "in_scope", listing.Len())
	}

	return append(refs, datasets.FileRefs(listing, l.URLColumn, l.FormatColumn, l.TitleColumn)...), nil
}
