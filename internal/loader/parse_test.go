package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/jsontree"
)

func TestParseCSV(t *testing.T) {
	data := "\xEF\xBB\xBFnomBeneficiaire; montant ;;dateConvention\n" +
		"Association A;1 500,50;x;01/02/2023\n" +
		"\n" +
		"Commune B;;\n" +
		"Lyc\xC3\xA9e C;12;y;2023-03-04;extra\n"
	tb, err := parseCSV([]byte(data), Options{})
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	wantCols := []string{"nomBeneficiaire", "montant", "unnamed_2", "dateConvention"}
	if !reflect.DeepEqual(tb.Columns(), wantCols) {
		t.Fatalf("Columns() = %v, want %v", tb.Columns(), wantCols)
	}
	if tb.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (blank line skipped)", tb.Len())
	}
	if got := tb.Cell(0, "montant"); got != "1 500,50" {
		t.Errorf("montant = %v", got)
	}
	if got := tb.Cell(1, "montant"); got != nil {
		t.Errorf("empty cell = %v, want nil", got)
	}
	if got := tb.Cell(1, "dateConvention"); got != nil {
		t.Errorf("short row not padded: %v", got)
	}
	if got := tb.Cell(2, "nomBeneficiaire"); got != "Lycée C" {
		t.Errorf("utf-8 cell = %v", got)
	}
}

func TestParseCSV_Windows1252(t *testing.T) {
	data := []byte("libell\xE9;montant\nR\xE9gion;10\n")
	tb, err := parseCSV(data, Options{})
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if tb.Columns()[0] != "libellé" || tb.Cell(0, "libellé") != "Région" {
		t.Errorf("decoded = %v / %v", tb.Columns(), tb.Row(0))
	}
}

func TestParseCSV_Empty(t *testing.T) {
	if _, err := parseCSV(nil, Options{}); !errors.Is(err, core.ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

const decpJSON = `{"marches": [
  {"id": "M1", "acheteur": {"id": "21690123100011", "nom": "Lyon"},
   "titulaires": [{"id": "1", "denominationSociale": "ACME"}, {"id": "2", "denominationSociale": "Bolt"}],
   "codesCPV": ["45000000", "45200000"], "montant": 1200.5, "dureeMois": 12, "modifications": []},
  {"id": "M2", "acheteur": {"id": "200046977"}, "extra": true}
]}`

func TestParseJSON_Flatten(t *testing.T) {
	tb, err := parseJSON([]byte(decpJSON), Options{Root: "marches"})
	if err != nil {
		t.Fatalf("parseJSON: %v", err)
	}
	wantCols := []string{
		"id", "acheteur.id", "acheteur.nom",
		"titulaires.0.id", "titulaires.0.denominationSociale",
		"titulaires.1.id", "titulaires.1.denominationSociale",
		"codesCPV", "montant", "dureeMois", "modifications", "extra",
	}
	if !reflect.DeepEqual(tb.Columns(), wantCols) {
		t.Fatalf("Columns() =\n  %v\nwant\n  %v", tb.Columns(), wantCols)
	}
	if got := tb.Cell(0, "codesCPV"); !reflect.DeepEqual(got, []any{"45000000", "45200000"}) {
		t.Errorf("codesCPV = %#v", got)
	}
	if got := tb.Cell(0, "dureeMois"); got != int64(12) {
		t.Errorf("dureeMois = %#v, want int64", got)
	}
	if got := tb.Cell(0, "modifications"); got != nil {
		t.Errorf("empty array = %#v, want nil", got)
	}
	if got := tb.Cell(1, "titulaires.1.denominationSociale"); got != nil {
		t.Errorf("missing key = %v, want nil", got)
	}
	if got := tb.Cell(1, "extra"); got != true {
		t.Errorf("extra = %v", got)
	}
}

func TestRecords(t *testing.T) {
	decode := func(s string) any {
		v, err := jsontree.Decode([]byte(s))
		if err != nil {
			t.Fatalf("Decode(%s): %v", s, err)
		}
		return v
	}
	tests := []struct {
		name    string
		doc     string
		root    string
		want    int
		wantErr bool
	}{
		{"array", `[{"a":1},{"a":2}]`, "", 2, false},
		{"first array of objects", `{"meta": [1, 2], "data": [{"a":1}]}`, "", 1, false},
		{"single object", `{"a": 1}`, "", 1, false},
		{"root key", `{"x": [{"a":1}], "y": [{"a":1},{"a":2}]}`, "y", 2, false},
		{"root object", `{"marches": {"marche": [{"a":1},{"a":2},{"a":3}]}}`, "marches", 3, false},
		{"dotted root", `{"d": {"rows": [{"a":1}]}}`, "d.rows", 1, false},
		{"missing root", `{"x": []}`, "y", 0, true},
		{"scalar document", `42`, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Records(decode(tt.doc), tt.root)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	_, err := parseJSON([]byte(`{"marches": [`), Options{})
	if core.ErrorCode(err) != "LOAD004" {
		t.Errorf("code = %s (%v), want LOAD004", core.ErrorCode(err), err)
	}
}

func buildZip(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(files[name]))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseZip(t *testing.T) {
	files := map[string]string{
		"__MACOSX/._data.csv": "junk",
		"LISEZMOI.txt":        "readme",
		"data.csv":            "a;b\n1;2\n",
		"other.json":          `[{"a":1}]`,
	}
	data := buildZip(t, files, []string{"__MACOSX/._data.csv", "LISEZMOI.txt", "data.csv", "other.json"})
	tb, err := parseZip(data, Options{})
	if err != nil {
		t.Fatalf("parseZip: %v", err)
	}
	if !reflect.DeepEqual(tb.Columns(), []string{"a", "b"}) || tb.Len() != 1 {
		t.Errorf("got %v with %d rows", tb.Columns(), tb.Len())
	}

	none := buildZip(t, map[string]string{"a.txt": "x"}, []string{"a.txt"})
	if _, err := parseZip(none, Options{}); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := parseZip([]byte("not a zip"), Options{}); core.ErrorCode(err) != "LOAD005" {
		t.Errorf("code = %s (%v)", core.ErrorCode(err), err)
	}
}

func TestParseZip_EntryLimit(t *testing.T) {
	data := buildZip(t, map[string]string{"data.csv": "a;b\n" + strings.Repeat("1;2\n", 100)}, []string{"data.csv"})
	if _, err := parseZip(data, Options{MaxBytes: 64}); !errors.Is(err, core.ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	tb, err := parseZip(data, Options{MaxBytes: 1 << 20})
	if err != nil {
		t.Fatalf("under the limit: %v", err)
	}
	if tb.Len() != 100 {
		t.Errorf("rows = %d, want 100", tb.Len())
	}
}

func TestParseZip_EntryBOM(t *testing.T) {
	data := buildZip(t, map[string]string{"data.csv": "\xef\xbb\xbfsiren;nom\n1;a\n"}, []string{"data.csv"})
	tb, err := parseZip(data, Options{})
	if err != nil {
		t.Fatalf("parseZip: %v", err)
	}
	if !reflect.DeepEqual(tb.Columns(), []string{"siren", "nom"}) {
		t.Errorf("columns = %q", tb.Columns())
	}
}

func TestParseExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A2", &[]any{"nomBeneficiaire", "montant"})
	f.SetSheetRow(sheet, "A3", &[]any{"Association A", 1500})
	f.SetSheetRow(sheet, "A4", &[]any{"Commune B", ""})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	tb, err := parseExcel(buf.Bytes(), Options{})
	if err != nil {
		t.Fatalf("parseExcel: %v", err)
	}
	if !reflect.DeepEqual(tb.Columns(), []string{"nomBeneficiaire", "montant"}) {
		t.Fatalf("Columns() = %v", tb.Columns())
	}
	if tb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tb.Len())
	}
	if got := tb.Cell(0, "montant"); got != "1500" {
		t.Errorf("montant = %#v", got)
	}
	if got := tb.Cell(1, "montant"); got != nil {
		t.Errorf("empty cell = %#v", got)
	}
}

func TestParseExcel_LegacyXLS(t *testing.T) {
	data := append(append([]byte{}, oleSignature...), make([]byte, 64)...)
	_, err := parseExcel(data, Options{})
	if !errors.Is(err, core.ErrUnsupportedFormat) || core.ErrorCode(err) != "LOAD001" {
		t.Errorf("err = %v, want ErrUnsupportedFormat / LOAD001", err)
	}
}

type mapSource map[string][]byte

func (m mapSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	b, ok := m[ref]
	if !ok {
		return nil, errors.New("open " + ref + ": no such file or directory")
	}
	return b, nil
}

func TestFactory_Load(t *testing.T) {
	src := mapSource{
		"https://x.org/a.csv":        []byte("a;b\n1;2\n"),
		"https://x.org/header.csv":   []byte("a;b\n"),
		"https://x.org/download?id=": []byte(`[{"a":1}]`),
		"https://x.org/doc.pdf":      []byte("%PDF"),
	}
	fac := NewFactory(src)
	ctx := context.Background()

	tb, err := fac.Load(ctx, FileRef{URL: "https://x.org/a.csv"})
	if err != nil || tb.Len() != 1 {
		t.Fatalf("Load csv = %v, %v", tb, err)
	}
	if _, err := fac.Load(ctx, FileRef{URL: "https://x.org/download?id=", Format: "JSON"}); err != nil {
		t.Errorf("declared format should win: %v", err)
	}

	tests := []struct {
		name string
		ref  FileRef
		want error
	}{
		{"unsupported", FileRef{URL: "https://x.org/doc.pdf", Format: "pdf"}, core.ErrUnsupportedFormat},
		{"header only", FileRef{URL: "https://x.org/header.csv"}, core.ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fac.Load(ctx, tt.ref); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := fac.Load(ctx, FileRef{URL: "https://x.org/missing.csv"}); err == nil {
		t.Error("fetch failure should be returned")
	}
}

func TestFormatFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x.org/data/file.CSV", "csv"},
		{"https://x.org/file.xlsx?download=1", "xlsx"},
		{"https://x.org/file.json#top", "json"},
		{"https://x.org/api/records", ""},
		{"/tmp/archive.zip", "zip"},
	}
	for _, tt := range tests {
		if got := FormatFromURL(tt.url); got != tt.want {
			t.Errorf("FormatFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, f := range []string{"csv", "excel", "json", "xls", "xlsx", "zip", " XLSX ", ".csv"} {
		if _, ok := Lookup(f); !ok {
			t.Errorf("Lookup(%q) found no parser", f)
		}
	}
	if _, ok := Lookup("pdf"); ok {
		t.Error("Lookup(pdf) should fail")
	}
}
