package datasets

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/schema"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Match modes of a filter rule.
const (
	MatchEnum    = "enum"
	MatchPattern = "pattern"
)

// FilterRule keeps rows whose column satisfies the schema constraint of the
// same property.
type FilterRule struct {
	Column string `yaml:"column"`
	Match  string `yaml:"match"`
}

// Validate checks the match mode.
func (r FilterRule) Validate() error {
	if strings.TrimSpace(r.Column) == "" {
		return fmt.Errorf("filter rule: column is required")
	}
	if r.Match != MatchEnum && r.Match != MatchPattern {
		return fmt.Errorf("filter rule %s: match must be %q or %q", r.Column, MatchEnum, MatchPattern)
	}
	return nil
}

// DefaultFilterRules separate procurement contracts from concessions mixed
// into the unified DECP file.
func DefaultFilterRules() []FilterRule {
	return []FilterRule{
		{Column: "procedure", Match: MatchEnum},
		{Column: "nature", Match: MatchEnum},
		{Column: "_type", Match: MatchPattern},
	}
}

type compiledRule struct {
	column string
	values map[string]bool // cleaned enum values
	prop   schema.Property // pattern rules
	enum   bool
}

func (c compiledRule) matches(v any) bool {
	s, ok := v.(string)
	if !ok {
		// Non-string values never match.
		return false
	}
	if c.enum {
		return c.values[core.CleanValue(s)]
	}
	return c.prop.MatchesPattern(s)
}

// compileRules resolves rules against the schema and the table. Rules whose
// column is absent, or whose property declares no constraint of that kind,
// are skipped.
func compileRules(ctx context.Context, t *table.Table, s *schema.Schema, rules []FilterRule) []compiledRule {
	log := logging.FromContext(ctx)
	var out []compiledRule
	for _, r := range rules {
		if !t.Has(r.Column) {
			log.Warn("filter column missing from data, rule skipped", "column", r.Column)
			continue
		}
		prop, ok := s.Lookup(r.Column)
		if !ok {
			log.Warn("filter column missing from schema, rule skipped", "column", r.Column)
			continue
		}
		switch r.Match {
		case MatchEnum:
			values := make(map[string]bool)
			for _, e := range prop.Enum {
				if str, ok := e.(string); ok {
					values[core.CleanValue(str)] = true
				}
			}
			if len(values) == 0 {
				log.Warn("schema property has no enum, rule skipped", "column", r.Column)
				continue
			}
			out = append(out, compiledRule{column: r.Column, values: values, enum: true})
		case MatchPattern:
			if !prop.HasPattern() {
				log.Warn("schema property has no pattern, rule skipped", "column", r.Column)
				continue
			}
			out = append(out, compiledRule{column: r.Column, prop: prop})
		}
	}
	return out
}

// FilterRows keeps the rows matching at least one rule. With no applicable
// rule every row is kept.
func FilterRows(ctx context.Context, t *table.Table, s *schema.Schema, rules []FilterRule) *table.Table {
	compiled := compileRules(ctx, t, s, rules)
	if len(compiled) == 0 {
		return t.Clone()
	}
	out := t.Filter(func(r table.Row) bool {
		for _, c := range compiled {
			if c.matches(r.Get(c.column)) {
				return true
			}
		}
		return false
	})
	logging.FromContext(ctx).Info("rows filtered on schema constraints",
		"kept", out.Len(), "dropped", t.Len()-out.Len())
	return out
}
