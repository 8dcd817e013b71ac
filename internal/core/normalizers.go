package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/opendata/internal/table"
)

// SIRENLength is the length of a SIREN organization number.
const SIRENLength = 9

// ZeroPad left-pads s with zeros up to width. Longer strings are returned as-is.
func ZeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// digitsOf renders a cell as a digit string. Integral floats lose their
// decimal part (spreadsheets store 21310555400000 as a float); spaces are
// removed. ok is false when anything but digits remains.
func digitsOf(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) || x != math.Trunc(x) || x < 0 {
			return "", false
		}
		s = strconv.FormatFloat(x, 'f', 0, 64)
	case string:
		s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(CleanCell(x))
		s = strings.TrimSuffix(s, ".0")
	default:
		s = table.Text(x)
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}

// NormalizeSIREN returns v as a 9-digit SIREN. Shorter numbers are
// zero-padded (leading zeros are lost when a SIREN goes through a numeric
// column); longer or non-numeric values are rejected.
func NormalizeSIREN(v any) (string, bool) {
	s, ok := digitsOf(v)
	if !ok || len(s) > SIRENLength {
		return "", false
	}
	return ZeroPad(s, SIRENLength), true
}

// SIRENFromID extracts the SIREN prefix of an organization identifier, such
// as the first 9 characters of a 14-digit SIRET.
func SIRENFromID(v any) (string, bool) {
	s, ok := digitsOf(v)
	if !ok || len(s) < SIRENLength {
		return "", false
	}
	return s[:SIRENLength], true
}

// ZeroPadCode renders a numeric or string code left-padded to width, so
// department "1" becomes "001". Non-numeric codes such as "2A" are padded
// the same way.
func ZeroPadCode(v any, width int) any {
	if table.IsNull(v) {
		return nil
	}
	if s, ok := digitsOf(v); ok {
		return ZeroPad(s, width)
	}
	return ZeroPad(CleanCell(table.Text(v)), width)
}
