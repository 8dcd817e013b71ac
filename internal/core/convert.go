package core

// convert.go casts raw cell values to the types declared by a schema.
//
// Public datasets are produced by many tools and carry the usual mess:
//   - French number formats ("1 234,56", "1.234.567", "12,5 %", "€ 300")
//   - Day-first dates (02/01/2024), ISO dates and full timestamps
//   - Booleans as oui/non, vrai/faux, true/false, 1/0
//   - Excel formula prefixes (="value")
//
// Every To* function returns nil for empty or uncastable input, so a bad
// cell becomes a null instead of failing the file.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/opendata/internal/table"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Slash and dot forms are day-first.
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "02-01-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"2 Jan 2006", "Jan 2, 2006",
		"20060102",
	}
	datetimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
	}
)

// Cast converts v to the Go representation of ft.
func Cast(v any, ft FieldType) any {
	switch ft {
	case FieldInteger:
		return ToInteger(v)
	case FieldNumber:
		return ToNumber(v)
	case FieldBoolean:
		return ToBool(v)
	case FieldDate:
		return ToDate(v)
	case FieldDatetime:
		return ToDatetime(v)
	case FieldYear:
		return ToYear(v)
	default:
		return ToText(v)
	}
}

// ToText converts any cell to a trimmed string. Lists are comma-joined.
func ToText(v any) any {
	if table.IsNull(v) {
		return nil
	}
	s := strings.TrimSpace(table.Text(v))
	if s == "" {
		return nil
	}
	return s
}

// ToNumber converts a cell to float64.
// Handles currency symbols, percent signs, thousands separators, decimal
// commas and accounting format (parentheses for negative).
func ToNumber(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1.0
		}
		return 0.0
	case string:
		f, ok := parseNumber(x)
		if !ok {
			return nil
		}
		return f
	}
	return nil
}

// ToInteger converts a cell to int64. Non-integral numbers are uncastable.
func ToInteger(v any) any {
	switch x := v.(type) {
	case int64:
		return x
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	f, ok := ToNumber(v).(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil
	}
	return int64(f)
}

func parseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(
		"\u20ac", "", // Euro
		"$", "",
		"\u00a3", "", // Pound
		"%", "",
		"EUR", "",
		" ", "",
		"\u00a0", "", // no-break space
		"\u202f", "", // narrow no-break space
		"'", "",
	).Replace(s)

	s = normalizeSeparators(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeSeparators rewrites s so '.' is the only decimal separator and no
// thousands separator remains. With both ',' and '.', the last one is the
// decimal mark. A lone separator kind occurring more than once is a thousands
// separator; a single ',' is a decimal comma.
func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// ToBool converts a cell to bool.
// Accepts true/false, oui/non, vrai/faux, yes/no, t/f, o/n, y/n, 1/0.
func ToBool(v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		switch x {
		case 0:
			return false
		case 1:
			return true
		}
		return nil
	case float64:
		switch x {
		case 0:
			return false
		case 1:
			return true
		}
		return nil
	case string:
		switch strings.ToLower(StripAccents(CleanCell(x))) {
		case "true", "t", "yes", "y", "oui", "o", "vrai", "v", "1":
			return true
		case "false", "f", "no", "n", "non", "faux", "0":
			return false
		}
	}
	return nil
}

// ToDate converts a cell to a time.Time at midnight UTC.
// Supports multiple date formats and handles 2-digit years with pivot.
// Timestamps are truncated to their date.
func ToDate(v any) any {
	switch x := v.(type) {
	case time.Time:
		return truncateDay(x)
	case string:
		t, ok := parseDate(CleanCell(x))
		if !ok {
			return nil
		}
		return t
	}
	return nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	if t, ok := parseDatetime(s); ok {
		return truncateDay(t), true
	}
	return time.Time{}, false
}

// ToDatetime converts a cell to a time.Time. Plain dates are accepted and
// land at midnight UTC.
func ToDatetime(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s := CleanCell(x)
		if t, ok := parseDatetime(s); ok {
			return t
		}
		if t, ok := parseDate(s); ok {
			return t
		}
	}
	return nil
}

func parseDatetime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToYear converts a cell to a four-digit year as int64. Dates yield their year.
func ToYear(v any) any {
	switch x := v.(type) {
	case time.Time:
		return int64(x.Year())
	case string:
		if t, ok := parseDate(CleanCell(x)); ok {
			return int64(t.Year())
		}
	}
	y, ok := ToInteger(v).(int64)
	if !ok || y < 1000 || y > 9999 {
		return nil
	}
	return y
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
