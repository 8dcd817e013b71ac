package communities

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/table"
)

// CombinedName is the output name of the concatenated reference table.
const CombinedName = "infos_collectivites"

// Field maps a source column to its output name.
type Field struct {
	From string
	To   string
}

// Pad derives a zero-padded copy of a code column.
type Pad struct {
	From  string
	To    string
	Width int
}

// Level describes the extraction of one OFGL dataset.
type Level struct {
	Name    string // regions, departements, communes, epci
	URL     string
	Fields  []Field
	Type    string            // forced value of the type column; empty keeps the source
	Recode  map[string]string // applied once to the type column
	Pads    []Pad
	Order   []string // output columns; empty keeps the Fields order
	SortBy  string
	Numeric bool // sort SortBy numerically
}

const ofglBase = "https://data.ofgl.fr/explore/dataset/"

// ofglQuery restricts the download to one row per authority: the 2020
// "Dépenses totales" aggregate, with labels as headers and ';' separators.
const ofglQuery = "/download/?format=csv&refine.exer=2020&refine.agregat=D%C3%A9penses+totales" +
	"&timezone=Europe/Berlin&lang=fr&use_labels_for_header=true&csv_separator=%3B"

// DefaultLevels are the four OFGL reference datasets.
func DefaultLevels() []Level {
	return []Level{
		{
			Name: "regions",
			URL:  ofglBase + "ofgl-base-regions-consolidee" + ofglQuery,
			Fields: []Field{
				{"Code Insee 2021 Région", ColCOG},
				{"Nom 2021 Région", ColName},
				{"Catégorie", ColType},
				{"Code Siren Collectivité", "SIREN"},
				{"Population totale", ColPopulation},
			},
			SortBy: ColCOG,
		},
		{
			Name: "departements",
			URL:  ofglBase + "ofgl-base-departements-consolidee" + ofglQuery,
			Fields: []Field{
				{"Code Insee 2021 Région", ColRegion},
				{"Code Insee 2021 Département", ColCOG},
				{"Nom 2021 Département", ColName},
				{"Catégorie", ColType},
				{"Code Siren Collectivité", "SIREN"},
				{"Population totale", ColPopulation},
			},
			Type:   TypeDepartement,
			Pads:   []Pad{{ColCOG, "COG_3digits", 3}},
			Order:  []string{ColName, "SIREN", ColType, ColCOG, "COG_3digits", ColRegion, ColPopulation},
			SortBy: ColCOG,
		},
		{
			Name: "communes",
			URL:  ofglBase + "ofgl-base-communes-consolidee" + ofglQuery,
			Fields: []Field{
				{"Code Insee 2021 Région", ColRegion},
				{"Code Insee 2021 Département", ColDepartement},
				{"Code Insee 2021 Commune", ColCOG},
				{"Nom 2021 Commune", ColName},
				{"Catégorie", ColType},
				{"Code Siren Collectivité", "SIREN"},
				{"Population totale", ColPopulation},
			},
			Type:   TypeCommune,
			Pads:   []Pad{{ColDepartement, "code_departement_3digits", 3}},
			Order:  []string{ColName, "SIREN", ColCOG, ColType, ColDepartement, "code_departement_3digits", ColRegion, ColPopulation},
			SortBy: ColCOG,
		},
		{
			Name: "epci",
			URL:  ofglBase + "ofgl-base-gfp-consolidee" + ofglQuery,
			Fields: []Field{
				{"Code Insee 2021 Région", ColRegion},
				{"Code Insee 2021 Département", ColDepartement},
				{"Nature juridique 2021 abrégée", ColType},
				{"Code Siren 2021 EPCI", "SIREN"},
				{"Nom 2021 EPCI", ColName},
				{"Population totale", ColPopulation},
			},
			Recode:  map[string]string{"MET69": "M", "MET75": "M", "M": "MET"},
			Pads:    []Pad{{ColDepartement, "code_departement_3digits", 3}},
			Order:   []string{ColName, "SIREN", ColType, ColDepartement, "code_departement_3digits", ColRegion, ColPopulation},
			SortBy:  ColPopulation,
			Numeric: true,
		},
	}
}

// LevelResult is one extracted level.
type LevelResult struct {
	Level Level
	Name  string // output name, identifiants_<level>_<year>
	Data  *table.Table
}

// Extraction is the result of Extract.
type Extraction struct {
	Levels   []LevelResult
	Combined *table.Table
}

// Extract downloads and reshapes every level. The first failure aborts.
func Extract(ctx context.Context, fac *loader.Factory, levels []Level, year int) (*Extraction, error) {
	out := &Extraction{}
	var parts []*table.Table
	for _, lv := range levels {
		log := logging.WithFields(ctx, "level", lv.Name, "url", lv.URL)
		raw, err := fac.Load(ctx, loader.FileRef{URL: lv.URL, Format: "csv"})
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", lv.Name, err)
		}
		t, err := Reshape(raw, lv)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", lv.Name, err)
		}
		log.Info("level extracted", "rows", t.Len())

		out.Levels = append(out.Levels, LevelResult{
			Level: lv,
			Name:  fmt.Sprintf("identifiants_%s_%d", lv.Name, year),
			Data:  t,
		})
		parts = append(parts, t)
	}
	out.Combined = table.Concat(parts...)
	return out, nil
}

// Reshape applies a level definition to a downloaded table.
func Reshape(raw *table.Table, lv Level) (*table.Table, error) {
	var missing []string
	from := make([]string, len(lv.Fields))
	rename := make(map[string]string, len(lv.Fields))
	for i, f := range lv.Fields {
		if !raw.Has(f.From) {
			missing = append(missing, f.From)
		}
		from[i] = f.From
		rename[f.From] = f.To
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	t := raw.Select(from...).Rename(rename)
	if lv.Type != "" {
		t = t.WithConst(ColType, lv.Type)
	}
	if len(lv.Recode) > 0 {
		t = t.MapColumn(ColType, func(v any) any {
			if to, ok := lv.Recode[table.Text(v)]; ok {
				return to
			}
			return v
		})
	}
	t = t.MapColumn(ColPopulation, func(v any) any {
		if n := core.ToInteger(v); n != nil {
			return n
		}
		return v
	})
	for _, p := range lv.Pads {
		vals := t.Values(p.From)
		for i, v := range vals {
			vals[i] = core.ZeroPadCode(v, p.Width)
		}
		t = t.With(p.To, vals)
	}
	if len(lv.Order) > 0 {
		t = t.Select(lv.Order...)
	}
	if lv.SortBy != "" {
		t = t.SortBy(lv.SortBy, lessFunc(lv.Numeric))
	}
	return t, nil
}

// lessFunc orders cells; nulls sort last.
func lessFunc(numeric bool) func(a, b any) bool {
	return func(a, b any) bool {
		if table.IsNull(a) || table.IsNull(b) {
			return !table.IsNull(a) && table.IsNull(b)
		}
		if numeric {
			x, okx := core.ToNumber(a).(float64)
			y, oky := core.ToNumber(b).(float64)
			if okx && oky {
				return x < y
			}
		}
		return table.Text(a) < table.Text(b)
	}
}
