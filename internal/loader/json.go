package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/jsontree"
	"github.com/JonMunkholm/opendata/internal/table"
)

func init() {
	Register("json", parseJSON)
}

func parseJSON(data []byte, opts Options) (*table.Table, error) {
	doc, err := jsontree.Decode(core.ToUTF8(data))
	if err != nil {
		return nil, err
	}
	records, err := Records(doc, opts.Root)
	if err != nil {
		return nil, err
	}
	return Flatten(records), nil
}

// Records locates the record list of a decoded document. An array is the list
// itself. For an object, root (a dotted key path) names the list; without
// root the first array of objects at the top level is used, and an object
// with none is a single record. A root that leads to an object is searched
// one level deeper, so {"marches": {"marche": [...]}} works with root
// "marches".
func Records(doc any, root string) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case *jsontree.Object:
		if root == "" {
			if recs, ok := firstRecordArray(v); ok {
				return recs, nil
			}
			return []any{v}, nil
		}
		var cur any = v
		for _, seg := range strings.Split(root, ".") {
			obj, ok := cur.(*jsontree.Object)
			if !ok {
				cur = nil
				break
			}
			cur, _ = obj.Get(seg)
		}
		switch node := cur.(type) {
		case []any:
			return node, nil
		case *jsontree.Object:
			if recs, ok := firstRecordArray(node); ok {
				return recs, nil
			}
		}
		return nil, fmt.Errorf("%w: records key %q not found", jsontree.ErrMalformed, root)
	}
	return nil, fmt.Errorf("%w: document holds no records", jsontree.ErrMalformed)
}

func firstRecordArray(obj *jsontree.Object) ([]any, bool) {
	for _, k := range obj.Keys {
		arr, ok := obj.Values[k].([]any)
		if !ok || len(arr) == 0 {
			continue
		}
		if _, isObj := arr[0].(*jsontree.Object); isObj {
			return arr, true
		}
	}
	return nil, false
}

// Flatten turns records into a table. Nested objects become dotted columns
// (acheteur.id), arrays of objects become indexed columns (titulaires.0.id),
// arrays of scalars stay list cells and empty arrays are null. Columns are
// ordered by first appearance. A record that is not an object lands in a
// "value" column.
func Flatten(records []any) *table.Table {
	b := newColumnBuilder()
	for _, rec := range records {
		cells := make(map[string]any)
		if obj, ok := rec.(*jsontree.Object); ok {
			flattenInto(b, cells, "", obj)
		} else {
			b.add("value")
			cells["value"] = rec
		}
		b.rows = append(b.rows, cells)
	}
	return b.table()
}

func flattenInto(b *columnBuilder, cells map[string]any, prefix string, v any) {
	switch x := v.(type) {
	case *jsontree.Object:
		if x.Len() == 0 && prefix != "" {
			b.add(prefix)
			return
		}
		for _, k := range x.Keys {
			flattenInto(b, cells, join(prefix, k), x.Values[k])
		}
	case []any:
		if len(x) == 0 {
			b.add(prefix)
			return
		}
		if !hasObject(x) {
			b.add(prefix)
			list := make([]any, len(x))
			copy(list, x)
			cells[prefix] = list
			return
		}
		for i, e := range x {
			flattenInto(b, cells, join(prefix, strconv.Itoa(i)), e)
		}
	default:
		b.add(prefix)
		cells[prefix] = x
	}
}

func hasObject(vals []any) bool {
	for _, v := range vals {
		if _, ok := v.(*jsontree.Object); ok {
			return true
		}
	}
	return false
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

type columnBuilder struct {
	columns []string
	index   map[string]int
	rows    []map[string]any
}

func newColumnBuilder() *columnBuilder {
	return &columnBuilder{index: make(map[string]int)}
}

func (b *columnBuilder) add(name string) {
	if _, ok := b.index[name]; !ok {
		b.index[name] = len(b.columns)
		b.columns = append(b.columns, name)
	}
}

func (b *columnBuilder) table() *table.Table {
	t := table.New(b.columns...)
	for _, cells := range b.rows {
		row := make([]any, len(b.columns))
		for k, v := range cells {
			row[b.index[k]] = v
		}
		t.AppendRow(row)
	}
	return t
}
