package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("siren;nom")...),
			expected: "siren;nom",
		},
		{
			name:     "file without BOM",
			input:    []byte("siren;nom"),
			expected: "siren;nom",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "shorter than BOM",
			input:    []byte("ab"),
			expected: "ab",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := SkipBOM(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestSkipBOM_OneByteReads(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("abcdef")...)
	r := SkipBOM(iotest.OneByteReader(bytes.NewReader(input)))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "abcdef" {
		t.Errorf("got %q, want abcdef", got)
	}
}

func TestSkipBOM_ReadError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := io.ReadAll(SkipBOM(iotest.ErrReader(boom))); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
}

func TestReadAllLimited(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int64
		wantErr bool
	}{
		{"no limit", "abcdef", 0, false},
		{"under limit", "abc", 5, false},
		{"at limit", "abcde", 5, false},
		{"over limit", "abcdef", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAllLimited(strings.NewReader(tt.input), tt.max)
			if tt.wantErr {
				if !errors.Is(err, ErrTooLarge) {
					t.Fatalf("err = %v, want ErrTooLarge", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.input {
				t.Errorf("got %q, want %q", got, tt.input)
			}
		})
	}
}

func TestToUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("nom;ville"), "nom;ville"},
		{"utf8 kept", []byte("Hérault"), "Hérault"},
		{"windows-1252 decoded", []byte{'H', 0xE9, 'r', 'a', 'u', 'l', 't'}, "Hérault"},
		{"windows-1252 euro and oe", []byte{0x80, ' ', 0x9C, 'u', 'v', 'r', 'e'}, "€ œuvre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ToUTF8(tt.input)); got != tt.want {
				t.Errorf("ToUTF8 = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		input string
		want  rune
	}{
		{"a;b;c\n1,5;2;3", ';'},
		{"a,b,c\n", ','},
		{"a\tb\n", '\t'},
		{"a|b|c", '|'},
		{"single", ','},
		{"a;b,c", ';'},
	}
	for _, tt := range tests {
		if got := SniffDelimiter([]byte(tt.input)); got != tt.want {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
