package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// IsNull reports whether a cell counts as missing: nil, an empty or blank
// string, or a NaN float.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// MergeDuplicateColumns collapses columns sharing a name into the first one.
// For each row the merged cell is the first non-null value among duplicates.
func (t *Table) MergeDuplicateColumns() *Table {
	groups := make(map[string][]int)
	var order []string
	for j, c := range t.columns {
		if _, ok := groups[c]; !ok {
			order = append(order, c)
		}
		groups[c] = append(groups[c], j)
	}
	if len(order) == len(t.columns) {
		return t.Clone()
	}

	out := New(order...)
	out.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(order))
		for k, name := range order {
			for _, j := range groups[name] {
				if !IsNull(r[j]) {
					row[k] = r[j]
					break
				}
			}
		}
		out.rows[i] = row
	}
	return out
}

// Dedup drops rows whose values on subset repeat an earlier row; the first
// occurrence is kept. Names in subset that are not columns are ignored. An
// empty subset, or one naming no column at all, compares every column.
func (t *Table) Dedup(subset ...string) *Table {
	var idx []int
	for _, n := range subset {
		if j := t.Index(n); j >= 0 {
			idx = append(idx, j)
		}
	}
	if len(idx) == 0 {
		idx = make([]int, len(t.columns))
		for j := range idx {
			idx[j] = j
		}
	}

	out := New(t.columns...)
	seen := make(map[[2]uint64]struct{}, len(t.rows))
	for _, r := range t.rows {
		key := fingerprint(r, idx)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		row := make([]any, len(r))
		copy(row, r)
		out.rows = append(out.rows, row)
	}
	return out
}

// fingerprint hashes the cells at idx with murmur3. Each cell is written as a
// type tag followed by a length-prefixed encoding so that ("ab","c") and
// ("a","bc") hash differently.
func fingerprint(row []any, idx []int) [2]uint64 {
	h := murmur3.New128()
	var lenBuf [binary.MaxVarintLen64]byte
	for _, j := range idx {
		tag, enc := encodeCell(row[j])
		h.Write([]byte{tag})
		n := binary.PutUvarint(lenBuf[:], uint64(len(enc)))
		h.Write(lenBuf[:n])
		h.Write([]byte(enc))
	}
	a, b := h.Sum128()
	return [2]uint64{a, b}
}

func encodeCell(v any) (byte, string) {
	switch x := v.(type) {
	case nil:
		return 0, ""
	case string:
		return 's', x
	case int64:
		return 'i', strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return 0, ""
		}
		return 'f', strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return 'b', strconv.FormatBool(x)
	case time.Time:
		return 't', x.UTC().Format(time.RFC3339Nano)
	case []any:
		parts := make([]string, len(x))
		for k, e := range x {
			_, parts[k] = encodeCell(e)
		}
		return 'l', strings.Join(parts, "\x1f")
	default:
		return 'o', fmt.Sprint(x)
	}
}

// NonNull returns the number of non-null cells in the named column.
func (t *Table) NonNull(name string) int {
	j := t.Index(name)
	if j < 0 {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if !IsNull(r[j]) {
			n++
		}
	}
	return n
}

// NullCounts returns the number of null cells per column.
func (t *Table) NullCounts() map[string]int {
	out := make(map[string]int, len(t.columns))
	for _, c := range t.columns {
		if _, ok := out[c]; ok {
			continue
		}
		out[c] = t.Len() - t.NonNull(c)
	}
	return out
}

// Dtype names the storage type of a column the way data-frame tools report
// it: int64, float64, bool, datetime64, or object for strings, lists and
// mixed content. An all-null column is reported as object.
func (t *Table) Dtype(name string) string {
	j := t.Index(name)
	if j < 0 {
		return ""
	}
	kind := ""
	for _, r := range t.rows {
		if IsNull(r[j]) {
			continue
		}
		k := "object"
		switch r[j].(type) {
		case int64:
			k = "int64"
		case float64:
			k = "float64"
		case bool:
			k = "bool"
		case time.Time:
			k = "datetime64"
		}
		switch {
		case kind == "":
			kind = k
		case kind == k:
		case (kind == "int64" && k == "float64") || (kind == "float64" && k == "int64"):
			kind = "float64"
		default:
			return "object"
		}
	}
	if kind == "" {
		return "object"
	}
	return kind
}

// SortBy returns the rows ordered by the named column using less on cell
// values. The sort is stable.
func (t *Table) SortBy(name string, less func(a, b any) bool) *Table {
	c := t.Clone()
	j := c.Index(name)
	if j < 0 {
		return c
	}
	sort.SliceStable(c.rows, func(a, b int) bool {
		return less(c.rows[a][j], c.rows[b][j])
	})
	return c
}

// Text formats a cell for text output. Nulls become the empty string, lists are
// comma-joined, dates without a clock part use 2006-01-02.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(x))
		for k, e := range x {
			parts[k] = Text(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
