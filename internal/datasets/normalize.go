// Package datasets normalizes open-data tables against a declared schema:
// a single unified file joined to the communities scope (procurement, DECP),
// or a batch of heterogeneous files aggregated into one table (grants).
//
// Every stage is a function of its input table; none mutates shared state.
package datasets

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/opendata/internal/communities"
	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/schema"
	"github.com/JonMunkholm/opendata/internal/table"
)

// FileConfig parameterizes NormalizeFile.
type FileConfig struct {
	// BuyerColumn holds the buyer identifier whose first 9 digits are the
	// SIREN joined against the scope.
	BuyerColumn string
	// FilterRules select the rows to keep; empty disables row filtering.
	FilterRules []FilterRule
	// Secondary matches columns dropped before output.
	Secondary *regexp.Regexp
	// Awardees matches the indexed awardee name columns collapsed into
	// AwardeeColumn.
	Awardees      *regexp.Regexp
	AwardeeColumn string
}

// DefaultFileConfig returns the DECP settings.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		BuyerColumn:   "acheteur.id",
		FilterRules:   DefaultFilterRules(),
		Secondary:     regexp.MustCompile(`modifications\.|titulaires\.\d+\.id|titulaires\.\d+\.typeIdentifiant`),
		Awardees:      regexp.MustCompile(`^titulaires\.\d+\.denominationSociale`),
		AwardeeColumn: "titulaires",
	}
}

// NormalizeFile cleans one loaded dataset: schema columns are kept, rows are
// filtered on schema constraints and joined to the scope through the buyer
// SIREN, awardees are collapsed, list cells flattened, duplicates dropped and
// schema columns cast. Every returned row carries a siren present in scope.
func NormalizeFile(ctx context.Context, data *table.Table, s *schema.Schema, scope *communities.Scope, cfg FileConfig) (*table.Table, error) {
	log := logging.FromContext(ctx)

	t := SelectSchemaColumns(data, s)
	if t.Width() == 0 {
		return nil, core.ErrNoCommonColumns
	}
	log.Info("schema columns selected", "kept", t.Width(), "dropped", data.Width()-t.Width())

	t = FilterRows(ctx, t, s, cfg.FilterRules)

	t, err := JoinScope(ctx, t, scope, cfg.BuyerColumn)
	if err != nil {
		return nil, err
	}

	t = RemoveSecondaryColumns(t, cfg)
	t = FlattenLists(t).Dedup()
	t = CastColumns(t, func(col string) (core.FieldType, bool) {
		p, ok := s.Lookup(core.CleanColumnName(col))
		return p.Type, ok
	})

	log.Info("file normalized", "rows", t.Len(), "columns", t.Width())
	return t, nil
}

// SelectSchemaColumns keeps the columns whose name, with positional indices
// removed, is a schema property. Original names are kept.
func SelectSchemaColumns(t *table.Table, s *schema.Schema) *table.Table {
	return t.Keep(func(name string) bool {
		return s.Has(core.CleanColumnName(name))
	})
}

// JoinScope adds the SIREN of the buyer and the scope attributes of that
// SIREN. Rows whose buyer is not in scope are dropped. Scope columns already
// present in t are not overwritten.
func JoinScope(ctx context.Context, t *table.Table, scope *communities.Scope, buyerColumn string) (*table.Table, error) {
	if !t.Has(buyerColumn) {
		return nil, fmt.Errorf("buyer identifier column %q not in data", buyerColumn)
	}

	extra := make([]string, 0, len(communities.JoinColumns))
	for _, c := range communities.JoinColumns {
		if !t.Has(c) {
			extra = append(extra, c)
		}
	}

	out := table.New(append(t.Columns(), extra...)...)
	srcIdx := make([]int, len(extra))
	for k, c := range extra {
		for j, jc := range communities.JoinColumns {
			if jc == c {
				srcIdx[k] = j
			}
		}
	}

	missing := 0
	for i := 0; i < t.Len(); i++ {
		siren, ok := core.SIRENFromID(t.Cell(i, buyerColumn))
		if !ok {
			missing++
			continue
		}
		c, ok := scope.Lookup(siren)
		if !ok {
			missing++
			continue
		}
		joined := c.Values()
		row := append(append([]any{}, t.Row(i)...), make([]any, len(extra))...)
		for k, j := range srcIdx {
			row[t.Width()+k] = joined[j]
		}
		out.AppendRow(row)
	}

	logging.FromContext(ctx).Info("rows joined to communities scope",
		"kept", out.Len(), "dropped", missing, "scope", scope.Len())
	return out, nil
}

// RemoveSecondaryColumns drops secondary columns and collapses the awardee
// name columns into one comma-joined column.
func RemoveSecondaryColumns(t *table.Table, cfg FileConfig) *table.Table {
	if cfg.Secondary != nil {
		t = t.Drop(cfg.Secondary.MatchString)
	}
	if cfg.Awardees == nil || cfg.AwardeeColumn == "" {
		return t
	}

	var cols []string
	for _, c := range t.Columns() {
		if cfg.Awardees.MatchString(c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return t
	}

	vals := make([]any, t.Len())
	for i := range vals {
		var names []string
		for _, c := range cols {
			v := t.Cell(i, c)
			if table.IsNull(v) {
				continue
			}
			names = append(names, awardeeChars.Replace(table.Text(v)))
		}
		if len(names) > 0 {
			vals[i] = strings.Join(names, ", ")
		}
	}
	return t.DropColumns(cols...).With(cfg.AwardeeColumn, vals)
}

var awardeeChars = strings.NewReplacer("[", "", "]", "", "'", "")

// FlattenLists turns list cells into comma-joined strings.
func FlattenLists(t *table.Table) *table.Table {
	return t.Map(func(_ string, v any) any {
		list, ok := v.([]any)
		if !ok {
			return v
		}
		parts := make([]string, len(list))
		for i, e := range list {
			parts[i] = table.Text(e)
		}
		return strings.Join(parts, ",")
	})
}

// CastColumns casts every column for which typeOf reports a declared type.
// Uncastable values become null.
func CastColumns(t *table.Table, typeOf func(col string) (core.FieldType, bool)) *table.Table {
	types := make(map[string]core.FieldType)
	for _, c := range t.Columns() {
		if ft, ok := typeOf(c); ok {
			types[c] = ft
		}
	}
	return t.Map(func(col string, v any) any {
		ft, ok := types[col]
		if !ok {
			return v
		}
		return core.Cast(v, ft)
	})
}
