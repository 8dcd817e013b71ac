package communities

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/table"
)

const (
	regionsCSV = "Exercice;Code Insee 2021 Région;Nom 2021 Région;Catégorie;Code Siren Collectivité;Population totale;Agrégat\n" +
		"2020;84;Auvergne-Rhône-Alpes;REG;200053767;8042936;Dépenses totales\n" +
		"2020;11;Île-de-France;REG;237500079;12278210;Dépenses totales\n"
	departementsCSV = "Code Insee 2021 Région;Code Insee 2021 Département;Nom 2021 Département;Catégorie;Code Siren Collectivité;Population totale\n" +
		"84;69;Rhône;Département;226900010;1876051\n" +
		"84;01;Ain;Département;220100010;652432\n"
	communesCSV = "Code Insee 2021 Région;Code Insee 2021 Département;Code Insee 2021 Commune;Nom 2021 Commune;Catégorie;Code Siren Collectivité;Population totale\n" +
		"84;69;69123;Lyon;Commune;216901231;522250\n" +
		"84;1;01053;Bourg-en-Bresse;Commune;210100533;41527\n"
	epciCSV = "Code Insee 2021 Région;Code Insee 2021 Département;Nature juridique 2021 abrégée;Code Siren 2021 EPCI;Nom 2021 EPCI;Population totale\n" +
		"84;69;MET69;200046977;Métropole de Lyon;1411571\n" +
		"11;75;MET75;200054781;Métropole du Grand Paris;7075028\n" +
		"84;1;CA;200071751;CA du Bassin de Bourg-en-Bresse;131245\n" +
		"93;13;M;200054807;Métropole d'Aix-Marseille-Provence;1903173\n"
)

func testLevels() ([]Level, memSource) {
	src := memSource{}
	levels := DefaultLevels()
	bodies := []string{regionsCSV, departementsCSV, communesCSV, epciCSV}
	for i := range levels {
		levels[i].URL = "mem://" + levels[i].Name
		src[levels[i].URL] = []byte(bodies[i])
	}
	return levels, src
}

func TestExtract(t *testing.T) {
	levels, src := testLevels()
	ex, err := Extract(context.Background(), loader.NewFactory(src), levels, 2026)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ex.Levels) != 4 {
		t.Fatalf("levels = %d", len(ex.Levels))
	}

	var names []string
	for _, lr := range ex.Levels {
		names = append(names, lr.Name)
	}
	wantNames := []string{"identifiants_regions_2026", "identifiants_departements_2026", "identifiants_communes_2026", "identifiants_epci_2026"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("names = %v", names)
	}

	reg := ex.Levels[0].Data
	if !reflect.DeepEqual(reg.Columns(), []string{"COG", "nom", "type", "SIREN", "population"}) {
		t.Errorf("regions columns = %v", reg.Columns())
	}
	if reg.Cell(0, "COG") != "11" || reg.Cell(0, "population") != int64(12278210) {
		t.Errorf("regions not sorted by COG: %v", reg.Row(0))
	}

	dep := ex.Levels[1].Data
	if !reflect.DeepEqual(dep.Columns(), []string{"nom", "SIREN", "type", "COG", "COG_3digits", "code_region", "population"}) {
		t.Errorf("departements columns = %v", dep.Columns())
	}
	if dep.Cell(0, "nom") != "Ain" || dep.Cell(0, "type") != "DEP" || dep.Cell(0, "COG_3digits") != "001" {
		t.Errorf("departements row 0 = %v", dep.Row(0))
	}

	com := ex.Levels[2].Data
	if com.Cell(0, "code_departement_3digits") != "001" || com.Cell(0, "type") != "COM" {
		t.Errorf("communes row 0 = %v", com.Row(0))
	}

	epci := ex.Levels[3].Data
	var types []any
	for _, v := range epci.Values("type") {
		types = append(types, v)
	}
	// Sorted by population: CA, Lyon (MET69), Aix-Marseille (M), Grand Paris (MET75).
	if want := []any{"CA", "M", "MET", "M"}; !reflect.DeepEqual(types, want) {
		t.Errorf("epci types = %v, want %v", types, want)
	}

	comb := ex.Combined
	if comb.Len() != 10 {
		t.Errorf("combined rows = %d, want 10", comb.Len())
	}
	wantCols := []string{"COG", "nom", "type", "SIREN", "population", "COG_3digits", "code_region", "code_departement", "code_departement_3digits"}
	if !reflect.DeepEqual(comb.Columns(), wantCols) {
		t.Errorf("combined columns = %v", comb.Columns())
	}
}

func TestExtract_RoundTripScope(t *testing.T) {
	levels, src := testLevels()
	ex, err := Extract(context.Background(), loader.NewFactory(src), levels, 2026)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	s, err := FromTable(ex.Combined, Selection{Types: []string{"MET", "M"}})
	if err != nil {
		t.Fatalf("FromTable: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("metropoles = %d, want 3", s.Len())
	}
}

func TestExtract_Errors(t *testing.T) {
	levels, src := testLevels()
	src[levels[1].URL] = []byte("Code Insee 2021 Région;Nom\n84;x\n")
	_, err := Extract(context.Background(), loader.NewFactory(src), levels, 2026)
	if err == nil || !strings.Contains(err.Error(), "extract departements") || !strings.Contains(err.Error(), "missing columns") {
		t.Errorf("err = %v", err)
	}

	levels, src = testLevels()
	delete(src, levels[3].URL)
	if _, err := Extract(context.Background(), loader.NewFactory(src), levels, 2026); err == nil {
		t.Error("download failure should abort")
	}
}

func TestLessFunc(t *testing.T) {
	tb := table.FromRows([]string{"p"}, [][]any{{"100"}, {nil}, {"9"}, {int64(50)}})
	got := tb.SortBy("p", lessFunc(true)).Values("p")
	if want := []any{"9", int64(50), "100", nil}; !reflect.DeepEqual(got, want) {
		t.Errorf("numeric sort = %v, want %v", got, want)
	}
	got = tb.SortBy("p", lessFunc(false)).Values("p")
	if want := []any{"100", int64(50), "9", nil}; !reflect.DeepEqual(got, want) {
		t.Errorf("text sort = %v, want %v", got, want)
	}
}
