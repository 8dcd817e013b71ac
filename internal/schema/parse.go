package schema

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/jsontree"
)

// Fetcher returns the raw bytes behind a URL or path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Load fetches and parses the schema at url. root names the property a JSON
// Schema is entered through (for example "marches"); it is ignored by other
// styles.
func Load(ctx context.Context, f Fetcher, url, root string) (*Schema, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch schema %s: %w", url, err)
	}
	s, err := Parse(data, url, root)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", url, err)
	}
	return s, nil
}

// Parse decodes a schema document. The style is chosen from the name
// extension (.csv) and, for JSON, from the document shape.
func Parse(data []byte, name, root string) (*Schema, error) {
	var (
		props []Property
		err   error
	)
	if strings.EqualFold(path.Ext(stripQuery(name)), ".csv") {
		props, err = parseCSV(data)
	} else {
		props, err = parseJSON(data, root)
	}
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("%w: no properties", core.ErrInvalidSchema)
	}
	return New(props), nil
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

func parseJSON(data []byte, root string) ([]Property, error) {
	v, err := jsontree.Decode(core.ToUTF8(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSchema, err)
	}
	doc, ok := v.(*jsontree.Object)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an object", core.ErrInvalidSchema)
	}
	if fields, ok := doc.Array("fields"); ok {
		return tableSchemaFields(fields), nil
	}
	w := &walker{doc: doc, inRef: make(map[string]bool)}
	node := doc
	if root != "" {
		node = w.enterRoot(doc, root)
		if node == nil {
			return nil, fmt.Errorf("%w: root property %q not found", core.ErrInvalidSchema, root)
		}
	}
	w.walk(node, "")
	return w.props, nil
}

// tableSchemaFields reads a Table Schema fields list.
func tableSchemaFields(fields []any) []Property {
	var props []Property
	for _, f := range fields {
		obj, ok := f.(*jsontree.Object)
		if !ok {
			continue
		}
		name, _ := obj.String("name")
		raw, _ := obj.String("type")
		p := Property{Name: name, RawType: raw, Type: fieldType(raw, formatOf(obj))}
		cons, _ := obj.Object("constraints")
		p.Enum = scalars(firstArray(cons, obj, "enum"))
		p.Pattern = firstString(cons, obj, "pattern")
		props = append(props, p)
	}
	return props
}

func firstArray(a, b *jsontree.Object, key string) []any {
	if v, ok := a.Array(key); ok {
		return v
	}
	v, _ := b.Array(key)
	return v
}

func firstString(a, b *jsontree.Object, key string) string {
	if v, ok := a.String(key); ok {
		return v
	}
	v, _ := b.String(key)
	return v
}

// scalars keeps the comparable enum entries.
func scalars(vals []any) []any {
	var out []any
	for _, v := range vals {
		switch v.(type) {
		case string, int64, float64, bool:
			out = append(out, v)
		}
	}
	return out
}

func formatOf(obj *jsontree.Object) string {
	f, _ := obj.String("format")
	return f
}

// fieldType decodes a declared type, refined by a JSON Schema format.
func fieldType(raw, format string) core.FieldType {
	ft := core.ParseFieldType(raw)
	if ft == core.FieldString {
		switch strings.ToLower(format) {
		case "date":
			return core.FieldDate
		case "date-time":
			return core.FieldDatetime
		}
	}
	return ft
}

// walker flattens a JSON Schema into leaf properties.
type walker struct {
	doc   *jsontree.Object
	inRef map[string]bool
	props []Property
}

// enterRoot finds the schema node of the root property. root may be a dotted
// path; each step descends through arrays, so "marches" of type array yields
// its item schema.
func (w *walker) enterRoot(doc *jsontree.Object, root string) *jsontree.Object {
	node := doc
	for _, seg := range strings.Split(root, ".") {
		props, ok := w.resolve(node).Object("properties")
		if !ok {
			return nil
		}
		if node, ok = props.Object(seg); !ok {
			return nil
		}
		node = w.resolve(node)
		for {
			items, ok := node.Object("items")
			if !ok {
				break
			}
			node = w.resolve(items)
		}
	}
	return node
}

// resolve follows a local $ref ("#/definitions/x", "#/$defs/x" or any JSON
// pointer into the document). Unresolvable references yield the node itself.
func (w *walker) resolve(node *jsontree.Object) *jsontree.Object {
	for i := 0; i < 32; i++ {
		ref, ok := node.String("$ref")
		if !ok || !strings.HasPrefix(ref, "#") {
			return node
		}
		target := w.pointer(strings.TrimPrefix(ref, "#"))
		if target == nil {
			return node
		}
		node = target
	}
	return node
}

func (w *walker) pointer(p string) *jsontree.Object {
	cur := w.doc
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part == "" {
			continue
		}
		part = strings.NewReplacer("~1", "/", "~0", "~").Replace(part)
		next, ok := cur.Object(part)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func (w *walker) walk(node *jsontree.Object, prefix string) {
	if ref, ok := node.String("$ref"); ok {
		if w.inRef[ref] {
			return
		}
		w.inRef[ref] = true
		defer delete(w.inRef, ref)
		node = w.resolve(node)
	}

	descended := false
	if props, ok := node.Object("properties"); ok {
		descended = true
		for _, name := range props.Keys {
			child, ok := props.Object(name)
			if !ok {
				continue
			}
			w.walk(child, join(prefix, name))
		}
	}
	if items, ok := node.Object("items"); ok && isStructured(w.resolve(items)) {
		descended = true
		w.walk(items, prefix)
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		alts, ok := node.Array(key)
		if !ok {
			continue
		}
		for _, alt := range alts {
			if obj, ok := alt.(*jsontree.Object); ok && isStructured(w.resolve(obj)) {
				descended = true
				w.walk(obj, prefix)
			}
		}
	}
	if descended || prefix == "" {
		return
	}

	w.props = append(w.props, w.leaf(node, prefix))
}

// leaf builds the property of a schema node without sub-properties. Array
// leaves take their type, enum and pattern from items.
func (w *walker) leaf(node *jsontree.Object, name string) Property {
	raw := typeName(node)
	src := node
	if raw == "array" {
		if items, ok := node.Object("items"); ok {
			src = w.resolve(items)
			raw = typeName(src)
		}
	}
	p := Property{Name: name, RawType: raw, Type: fieldType(raw, formatOf(src))}
	p.Enum = scalars(firstArray(src, node, "enum"))
	p.Pattern = firstString(src, node, "pattern")
	return p
}

// typeName returns the declared type; for a type list the first non-null
// entry wins.
func typeName(node *jsontree.Object) string {
	v, _ := node.Get("type")
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

// isStructured reports whether a node leads to sub-properties.
func isStructured(node *jsontree.Object) bool {
	if _, ok := node.Object("properties"); ok {
		return true
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		if _, ok := node.Array(key); ok {
			return true
		}
	}
	if items, ok := node.Object("items"); ok {
		_, has := items.Object("properties")
		return has
	}
	return false
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// parseCSV reads a property listing with a header row. Recognized columns are
// property (or name), type, enum (values separated by |) and pattern.
func parseCSV(data []byte) ([]Property, error) {
	data = core.ToUTF8(data)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = core.SniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty csv schema", core.ErrInvalidSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSchema, err)
	}
	col := make(map[string]int)
	for i, h := range header {
		col[strings.ToLower(core.CleanCell(h))] = i
	}
	nameCol, ok := col["property"]
	if !ok {
		if nameCol, ok = col["name"]; !ok {
			return nil, fmt.Errorf("%w: csv schema has no property column", core.ErrInvalidSchema)
		}
	}

	get := func(rec []string, key string) string {
		i, ok := col[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return core.CleanCell(rec[i])
	}

	var props []Property
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidSchema, err)
		}
		if nameCol >= len(rec) {
			continue
		}
		raw := get(rec, "type")
		p := Property{
			Name:    core.CleanCell(rec[nameCol]),
			RawType: raw,
			Type:    core.ParseFieldType(raw),
			Pattern: get(rec, "pattern"),
		}
		if enum := get(rec, "enum"); enum != "" {
			for _, v := range strings.Split(enum, "|") {
				if v = strings.TrimSpace(v); v != "" {
					p.Enum = append(p.Enum, v)
				}
			}
		}
		props = append(props, p)
	}
	return props, nil
}
