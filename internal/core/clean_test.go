package core

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCleanColumnName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"titulaires.0.id", "titulaires.id"},
		{"titulaires.id", "titulaires.id"},
		{"titulaires.12.denominationSociale", "titulaires.denominationSociale"},
		{"a.0.1.b", "a.b"},
		{"a.0.b.1.c", "a.b.c"},
		{"montant", "montant"},
		{"lieuExecution.code", "lieuExecution.code"},
		{"x.0", "x.0"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanColumnName(tt.input); got != tt.want {
			t.Errorf("CleanColumnName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestProperty_CleanColumnNameIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	segment := gen.OneConstOf("titulaires", "id", "acheteur", "nom", "0", "1", "12", "207")

	properties.Property("cleaning twice equals cleaning once", prop.ForAll(
		func(parts []string) bool {
			name := strings.Join(parts, ".")
			once := CleanColumnName(name)
			return CleanColumnName(once) == once
		},
		gen.SliceOf(segment),
	))

	properties.TestingRun(t)
}

func TestStripAccents(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Procédure adaptée", "Procedure adaptee"},
		{"Marché négocié sans publicité", "Marche negocie sans publicite"},
		{"Œuvre", "OEuvre"},
		{"cœur", "coeur"},
		{"ÎLE-DE-FRANCE", "ILE-DE-FRANCE"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := StripAccents(tt.input); got != tt.want {
			t.Errorf("StripAccents(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Appel d'offres ouvert", "appel doffres ouvert"},
		{"Appel d’offres restreint", "appel doffres restreint"},
		{"  Procédure adaptée ", "procedure adaptee"},
		{"Marché, subséquent", "marche subsequent"},
		{"appel doffres ouvert", "appel doffres ouvert"},
	}
	for _, tt := range tests {
		if got := CleanValue(tt.input); got != tt.want {
			t.Errorf("CleanValue(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"\ufeffcode", "code"},
		{"\u00a0valeur\u00a0", "valeur"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
