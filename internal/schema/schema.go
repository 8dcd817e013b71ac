// Package schema loads the declared schema of a dataset and flattens it into
// an ordered list of typed properties.
//
// Three declaration styles are read: JSON Schema (nested properties, $ref to
// definitions, arrays of objects), Table Schema (a fields list) and a CSV
// listing of properties. All of them end up as the same [Schema].
package schema

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
)

// Property is one schema column.
type Property struct {
	Name    string
	Type    core.FieldType
	RawType string // declared type name, "" when absent
	Enum    []any  // allowed values as declared; may hold non-strings
	Pattern string // declared regular expression, "" when absent

	re *regexp.Regexp
}

// MatchesPattern reports whether s matches the property pattern at its start.
// A property without a usable pattern matches nothing.
func (p Property) MatchesPattern(s string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(s)
}

// HasPattern reports whether the property carries a compiled pattern.
func (p Property) HasPattern() bool { return p.re != nil }

// Schema is an ordered set of properties with unique names.
type Schema struct {
	props []Property
	index map[string]int
	lower map[string]string
}

// New builds a schema from properties. Patterns are compiled once here; an
// invalid pattern is dropped with a warning. A repeated name keeps its first
// position, and its enum values are merged.
func New(props []Property) *Schema {
	s := &Schema{index: make(map[string]int), lower: make(map[string]string)}
	for _, p := range props {
		if p.Name == "" {
			continue
		}
		if p.Pattern != "" && p.re == nil {
			re, err := regexp.Compile(`^(?:` + p.Pattern + `)`)
			if err != nil {
				slog.Warn("schema pattern dropped", "property", p.Name, "pattern", p.Pattern, "error", err)
				p.Pattern = ""
			} else {
				p.re = re
			}
		}
		if i, ok := s.index[p.Name]; ok {
			s.props[i] = mergeProperty(s.props[i], p)
			continue
		}
		s.index[p.Name] = len(s.props)
		if _, ok := s.lower[strings.ToLower(p.Name)]; !ok {
			s.lower[strings.ToLower(p.Name)] = p.Name
		}
		s.props = append(s.props, p)
	}
	return s
}

func mergeProperty(a, b Property) Property {
	if a.RawType == "" && b.RawType != "" {
		a.Type, a.RawType = b.Type, b.RawType
	}
	if a.re == nil && b.re != nil {
		a.Pattern, a.re = b.Pattern, b.re
	}
	for _, v := range b.Enum {
		if !containsValue(a.Enum, v) {
			a.Enum = append(a.Enum, v)
		}
	}
	return a
}

func containsValue(vals []any, v any) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

// Len returns the number of properties.
func (s *Schema) Len() int { return len(s.props) }

// Names returns the property names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.props))
	for i, p := range s.props {
		out[i] = p.Name
	}
	return out
}

// Lookup returns the named property.
func (s *Schema) Lookup(name string) (Property, bool) {
	i, ok := s.index[name]
	if !ok {
		return Property{}, false
	}
	return s.props[i], true
}

// Has reports whether the schema declares name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Canonical returns the declared spelling of a name compared
// case-insensitively.
func (s *Schema) Canonical(name string) (string, bool) {
	c, ok := s.lower[strings.ToLower(name)]
	return c, ok
}
