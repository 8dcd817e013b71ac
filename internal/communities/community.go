// Package communities manages the reference list of French local
// authorities (regions, departments, communes, EPCI) keyed by SIREN: the
// selection of the scope datasets are joined against, and the extraction of
// that list from the OFGL open-data endpoints.
package communities

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Community types written by the extraction. EPCI carry their legal nature
// (CA, CC, CU, MET...) instead.
const (
	TypeRegion      = "REG"
	TypeDepartement = "DEP"
	TypeCommune     = "COM"
)

// Community is one local authority.
type Community struct {
	SIREN       string
	COG         string
	Name        string
	Type        string
	Population  int64
	Region      string // parent region code; the own code for a region
	Departement string // parent department code; the own code for a department
}

// Selection restricts the communities kept in a scope. An empty criterion
// does not restrict.
type Selection struct {
	Types         []string `yaml:"types"`
	Regions       []string `yaml:"regions"`
	Departements  []string `yaml:"departements"`
	MinPopulation int64    `yaml:"min_population"`
}

// Match reports whether c satisfies every criterion.
func (s Selection) Match(c Community) bool {
	if len(s.Types) > 0 && !containsFold(s.Types, c.Type) {
		return false
	}
	if len(s.Regions) > 0 && !containsCode(s.Regions, c.Region) {
		return false
	}
	if len(s.Departements) > 0 && !containsCode(s.Departements, c.Departement) {
		return false
	}
	return c.Population >= s.MinPopulation
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(strings.TrimSpace(x), v) {
			return true
		}
	}
	return false
}

// containsCode compares INSEE codes ignoring leading zeros, so "1", "01" and
// "001" designate the same department.
func containsCode(list []string, v string) bool {
	v = trimCode(v)
	if v == "" {
		return false
	}
	for _, x := range list {
		if trimCode(x) == v {
			return true
		}
	}
	return false
}

func trimCode(s string) string {
	return strings.ToUpper(strings.TrimLeft(strings.TrimSpace(s), "0"))
}

// Scope is the set of selected communities, indexed by SIREN.
type Scope struct {
	bySIREN map[string]Community
	order   []string
}

// NewScope indexes communities. When a SIREN repeats, the first community is
// kept.
func NewScope(list []Community) *Scope {
	s := &Scope{bySIREN: make(map[string]Community, len(list))}
	for _, c := range list {
		if _, dup := s.bySIREN[c.SIREN]; dup {
			slog.Warn("duplicate community siren, keeping first", "siren", c.SIREN, "nom", c.Name)
			continue
		}
		s.bySIREN[c.SIREN] = c
		s.order = append(s.order, c.SIREN)
	}
	return s
}

// Lookup returns the community with the given SIREN.
func (s *Scope) Lookup(siren string) (Community, bool) {
	if s == nil {
		return Community{}, false
	}
	c, ok := s.bySIREN[siren]
	return c, ok
}

// Len returns the number of communities.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Communities returns the communities in load order.
func (s *Scope) Communities() []Community {
	out := make([]Community, len(s.order))
	for i, siren := range s.order {
		out[i] = s.bySIREN[siren]
	}
	return out
}

// Scope columns as joined onto datasets.
const (
	ColSIREN       = "siren"
	ColType        = "type"
	ColName        = "nom"
	ColCOG         = "COG"
	ColRegion      = "code_region"
	ColDepartement = "code_departement"
	ColPopulation  = "population"
)

// JoinColumns lists the columns of Table, siren first.
var JoinColumns = []string{ColSIREN, ColType, ColName, ColCOG, ColRegion, ColDepartement, ColPopulation}

// Table returns the scope as a table with JoinColumns.
func (s *Scope) Table() *table.Table {
	t := table.New(JoinColumns...)
	for _, c := range s.Communities() {
		t.AppendRow(c.Values())
	}
	return t
}

// Values returns the fields of c in JoinColumns order.
func (c Community) Values() []any {
	return []any{c.SIREN, c.Type, c.Name, nullable(c.COG), nullable(c.Region), nullable(c.Departement), c.Population}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// FromTable reads communities from the concatenated reference table (column
// names as written by Extract) and keeps those matching sel. Rows without
// a valid SIREN are skipped.
func FromTable(t *table.Table, sel Selection) (*Scope, error) {
	sirenCol := firstColumn(t, "SIREN", ColSIREN)
	if sirenCol == "" {
		return nil, fmt.Errorf("communities table has no SIREN column")
	}

	var list []Community
	skipped := 0
	for _, r := range t.Rows() {
		siren, ok := core.NormalizeSIREN(r.Get(sirenCol))
		if !ok {
			skipped++
			continue
		}
		c := Community{
			SIREN:       siren,
			COG:         text(r.Get(ColCOG)),
			Name:        text(r.Get(ColName)),
			Type:        text(r.Get(ColType)),
			Region:      text(r.Get(ColRegion)),
			Departement: text(r.Get(ColDepartement)),
		}
		if n, ok := core.ToInteger(r.Get(ColPopulation)).(int64); ok {
			c.Population = n
		}
		switch c.Type {
		case TypeRegion:
			if c.Region == "" {
				c.Region = c.COG
			}
		case TypeDepartement:
			if c.Departement == "" {
				c.Departement = c.COG
			}
		}
		if sel.Match(c) {
			list = append(list, c)
		}
	}
	if skipped > 0 {
		slog.Warn("communities without valid siren skipped", "count", skipped)
	}
	return NewScope(list), nil
}

func firstColumn(t *table.Table, names ...string) string {
	for _, n := range names {
		if t.Has(n) {
			return n
		}
	}
	return ""
}

func text(v any) string {
	return strings.TrimSpace(table.Text(v))
}

// LoadScope reads the reference CSV at url and applies sel.
func LoadScope(ctx context.Context, fac *loader.Factory, url string, sel Selection) (*Scope, error) {
	t, err := fac.Load(ctx, loader.FileRef{URL: url, Format: "csv"})
	if err != nil {
		return nil, fmt.Errorf("load communities: %w", err)
	}
	s, err := FromTable(t, sel)
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "url", url).Info("communities scope loaded",
		"rows", t.Len(), "selected", s.Len())
	return s, nil
}
