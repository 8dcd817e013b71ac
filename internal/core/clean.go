package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// positionalIndex matches an array index between two name segments.
var positionalIndex = regexp.MustCompile(`\.\d+\.`)

// CleanColumnName strips positional array indices from a flattened column
// name: titulaires.0.id becomes titulaires.id. The replacement is repeated
// until nothing changes, so a.0.1.b becomes a.b and cleaning a clean name is
// a no-op.
func CleanColumnName(name string) string {
	for {
		next := positionalIndex.ReplaceAllString(name, ".")
		if next == name {
			return name
		}
		name = next
	}
}

var ligatures = strings.NewReplacer(
	"œ", "oe", "Œ", "OE",
	"æ", "ae", "Æ", "AE",
	"ß", "ss",
)

// StripAccents removes diacritics: "Procédure adaptée" becomes
// "Procedure adaptee". Ligatures are expanded.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return ligatures.Replace(s)
	}
	return ligatures.Replace(out)
}

var valuePunctuation = strings.NewReplacer(",", "", "'", "", "’", "")

// CleanValue reduces a categorical value to its comparison form: accents
// stripped, lower-cased, commas and apostrophes removed, surrounding spaces
// trimmed. "Appel d'offres ouvert" becomes "appel doffres ouvert".
func CleanValue(s string) string {
	s = strings.ToLower(StripAccents(s))
	s = valuePunctuation.Replace(s)
	return strings.TrimSpace(s)
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace, including no-break spaces and a stray BOM
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
