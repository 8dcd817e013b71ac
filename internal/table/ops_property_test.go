package table

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func tableOf(keys []string) *Table {
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{k, int64(len(k) % 3)}
	}
	return FromRows([]string{"k", "n"}, rows)
}

func TestProperty_Dedup(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	keys := gen.SliceOf(gen.OneConstOf("a", "b", "c", "ab", "", "bc"))

	properties.Property("dedup is idempotent", prop.ForAll(
		func(ks []string) bool {
			once := tableOf(ks).Dedup()
			return once.Dedup().Len() == once.Len()
		},
		keys,
	))

	properties.Property("dedup keeps first occurrences in order", prop.ForAll(
		func(ks []string) bool {
			seen := map[string]bool{}
			var want []string
			for _, k := range ks {
				if !seen[k] {
					seen[k] = true
					want = append(want, k)
				}
			}
			got := tableOf(ks).Dedup("k")
			if got.Len() != len(want) {
				return false
			}
			for i, w := range want {
				if got.Cell(i, "k") != w {
					return false
				}
			}
			return true
		},
		keys,
	))

	properties.Property("concat preserves row count", prop.ForAll(
		func(a, b []string) bool {
			return Concat(tableOf(a), tableOf(b)).Len() == len(a)+len(b)
		},
		keys, keys,
	))

	properties.TestingRun(t)
}
