package communities

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/table"
)

const infosCSV = `COG,nom,type,SIREN,population,COG_3digits,code_region,code_departement,code_departement_3digits
84,Auvergne-Rhône-Alpes,REG,200053767,8042936,,,,
69,Rhône,DEP,226900010,1876051,069,84,,
1,Ain,DEP,220100010,652432,001,84,,
69123,Lyon,COM,216901231,522250,,84,69,069
1053,Bourg-en-Bresse,COM,210100533,41527,,84,1,001
,Métropole de Lyon,MET,200046977,1411571,,84,69,069
,Bad siren,COM,12AB,10,,84,69,069
,Duplicate Lyon,COM,216901231,1,,84,69,069
`

func scopeTable(t *testing.T) *table.Table {
	t.Helper()
	fac := loader.NewFactory(memSource{"infos.csv": []byte(infosCSV)})
	tb, err := fac.Load(context.Background(), loader.FileRef{URL: "infos.csv"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tb
}

func TestFromTable_Selection(t *testing.T) {
	tb := scopeTable(t)
	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"no restriction", Selection{}, []string{"200053767", "226900010", "220100010", "216901231", "210100533", "200046977"}},
		{"types", Selection{Types: []string{"dep", "MET"}}, []string{"226900010", "220100010", "200046977"}},
		{"departement with leading zeros", Selection{Departements: []string{"01"}}, []string{"220100010", "210100533"}},
		{"region", Selection{Regions: []string{"84"}, Types: []string{"REG"}}, []string{"200053767"}},
		{"population", Selection{MinPopulation: 1000000}, []string{"200053767", "226900010", "200046977"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromTable(tb, tt.sel)
			if err != nil {
				t.Fatalf("FromTable: %v", err)
			}
			var got []string
			for _, c := range s.Communities() {
				got = append(got, c.SIREN)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("selected = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScope_LookupAndTable(t *testing.T) {
	s, err := FromTable(scopeTable(t), Selection{})
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	lyon, ok := s.Lookup("216901231")
	if !ok || lyon.Name != "Lyon" {
		t.Errorf("duplicate siren should keep first: %+v", lyon)
	}
	if lyon.Population != 522250 || lyon.Departement != "69" {
		t.Errorf("Lyon = %+v", lyon)
	}
	if _, ok := s.Lookup("000000000"); ok {
		t.Error("unknown siren should not be found")
	}

	tb := s.Table()
	if !reflect.DeepEqual(tb.Columns(), JoinColumns) || tb.Len() != s.Len() {
		t.Fatalf("Table() = %v rows %d", tb.Columns(), tb.Len())
	}
	if got := tb.Cell(1, ColDepartement); got != "69" {
		t.Errorf("department's own code should fill code_departement, got %v", got)
	}
	if got := tb.Cell(0, ColRegion); got != "84" {
		t.Errorf("region's own code should fill code_region, got %v", got)
	}
}

func TestFromTable_NoSIREN(t *testing.T) {
	if _, err := FromTable(table.New("COG", "nom"), Selection{}); err == nil {
		t.Error("expected error for a table without SIREN")
	}
}

func TestNilScope(t *testing.T) {
	var s *Scope
	if s.Len() != 0 {
		t.Error("nil scope should be empty")
	}
	if _, ok := s.Lookup("216901231"); ok {
		t.Error("nil scope lookup should miss")
	}
}

type memSource map[string][]byte

func (m memSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	b, ok := m[ref]
	if !ok {
		return nil, errors.New("open " + ref + ": no such file or directory")
	}
	return b, nil
}

func TestLoadScope(t *testing.T) {
	fac := loader.NewFactory(memSource{"infos.csv": []byte(infosCSV)})
	s, err := LoadScope(context.Background(), fac, "infos.csv", Selection{Types: []string{"COM"}})
	if err != nil {
		t.Fatalf("LoadScope: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, err := LoadScope(context.Background(), fac, "missing.csv", Selection{}); err == nil ||
		!strings.Contains(err.Error(), "load communities") {
		t.Errorf("err = %v", err)
	}
}
