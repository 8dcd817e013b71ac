package datasets

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/jsontree"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Unified DECP layout.
const (
	ModificationsKey = "modifications"
	// ContractIDColumn links a modification row to its contract.
	ContractIDColumn = "id_marche"
)

// UnifiedFile is the flattened unified DECP file.
type UnifiedFile struct {
	Main          *table.Table
	Modifications *table.Table
}

// LoadUnified fetches the unified JSON file at url and flattens the records
// under root.
func LoadUnified(ctx context.Context, src loader.Source, url, root string) (*UnifiedFile, error) {
	data, err := src.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := jsontree.Decode(core.ToUTF8(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	records, err := loader.Records(doc, root)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	u := SplitModifications(records)
	if u.Main.Empty() {
		return nil, fmt.Errorf("%s: %w", url, core.ErrEmptyFile)
	}
	logging.WithFields(ctx, "url", url).Info("unified file loaded",
		"records", u.Main.Len(), "columns", u.Main.Width(), "modifications", u.Modifications.Len())
	return u, nil
}

// SplitModifications flattens contract records into the main table and a
// side table holding one row per modification, linked by the contract id.
// The main table keeps its flattened modifications columns.
func SplitModifications(records []any) *UnifiedFile {
	var mods []any
	for _, rec := range records {
		obj, ok := rec.(*jsontree.Object)
		if !ok {
			continue
		}
		list, _ := obj.Array(ModificationsKey)
		if len(list) == 0 {
			continue
		}
		id, _ := obj.Get("id")
		for _, m := range list {
			mod, ok := m.(*jsontree.Object)
			if !ok {
				continue
			}
			row := jsontree.NewObject()
			row.Set(ContractIDColumn, id)
			for _, k := range mod.Keys {
				row.Set(k, mod.Values[k])
			}
			mods = append(mods, row)
		}
	}
	return &UnifiedFile{
		Main:          loader.Flatten(records),
		Modifications: loader.Flatten(mods),
	}
}

// KeepModificationsOf keeps the modifications of the contracts listed in the
// idColumn of main.
func KeepModificationsOf(mods, main *table.Table, idColumn string) *table.Table {
	ids := make(map[string]bool, main.Len())
	for _, v := range main.Values(idColumn) {
		if !table.IsNull(v) {
			ids[table.Text(v)] = true
		}
	}
	return mods.Filter(func(r table.Row) bool {
		return ids[table.Text(r.Get(ContractIDColumn))]
	})
}
