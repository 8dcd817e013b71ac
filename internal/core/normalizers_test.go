package core

import "testing"

func TestNormalizeSIREN(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"nine digits", "213105554", "213105554", true},
		{"lost leading zero", "21310555", "021310555", true},
		{"int64", int64(21310555), "021310555", true},
		{"float from spreadsheet", 213105554.0, "213105554", true},
		{"string float suffix", "213105554.0", "213105554", true},
		{"spaces", "213 105 554", "213105554", true},
		{"excel formula", `="213105554"`, "213105554", true},
		{"too long", "21310555400012", "", false},
		{"letters", "2A3105554", "", false},
		{"empty", "", "", false},
		{"nil", nil, "", false},
		{"fractional", 1.5, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeSIREN(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeSIREN(%#v) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSIRENFromID(t *testing.T) {
	tests := []struct {
		input  any
		want   string
		wantOK bool
	}{
		{"21310555400017", "213105554", true},
		{"213105554", "213105554", true},
		{int64(21310555400017), "213105554", true},
		{"2131", "", false},
		{"", "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := SIRENFromID(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("SIRENFromID(%#v) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestZeroPadCode(t *testing.T) {
	tests := []struct {
		input any
		width int
		want  any
	}{
		{"1", 3, "001"},
		{int64(75), 3, "075"},
		{"2A", 3, "02A"},
		{"974", 3, "974"},
		{1.0, 2, "01"},
		{nil, 3, nil},
		{"", 3, nil},
	}
	for _, tt := range tests {
		if got := ZeroPadCode(tt.input, tt.width); got != tt.want {
			t.Errorf("ZeroPadCode(%#v, %d) = %#v, want %#v", tt.input, tt.width, got, tt.want)
		}
	}
}
