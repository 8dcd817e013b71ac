package jsontree

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode_KeepsKeyOrder(t *testing.T) {
	v, err := Decode([]byte(`{"z": 1, "a": {"y": true, "b": null}, "m": "x"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("Decode returned %T, want *Object", v)
	}
	if !reflect.DeepEqual(obj.Keys, []string{"z", "a", "m"}) {
		t.Errorf("Keys = %v", obj.Keys)
	}
	inner, ok := obj.Object("a")
	if !ok || !reflect.DeepEqual(inner.Keys, []string{"y", "b"}) {
		t.Fatalf("inner = %#v", inner)
	}
	if v, _ := inner.Get("b"); v != nil {
		t.Errorf("b = %#v, want nil", v)
	}
}

func TestDecode_Values(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"integer", `42`, int64(42)},
		{"negative integer", `-7`, int64(-7)},
		{"float", `1.5`, 1.5},
		{"exponent", `1e3`, 1000.0},
		{"integer overflow becomes float", `123456789012345678901234`, 123456789012345678901234.0},
		{"string escapes", `"d’offres \"x\""`, "d’offres \"x\""},
		{"bool", `false`, false},
		{"null", `null`, nil},
		{"array", `[1, "a", null]`, []any{int64(1), "a", nil}},
		{"empty array", `[]`, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode(%s): %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%s) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, input := range []string{``, `   `, `{"a":`, `[1,,2]`, `{'a': 1}`} {
		if _, err := Decode([]byte(input)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", input, err)
		}
	}
}

func TestObject_DuplicateKeys(t *testing.T) {
	o := NewObject()
	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("a", 3)
	if !reflect.DeepEqual(o.Keys, []string{"a", "b"}) {
		t.Errorf("Keys = %v", o.Keys)
	}
	if v, _ := o.Get("a"); v != 3 {
		t.Errorf("a = %v, want 3", v)
	}
	var nilObj *Object
	if nilObj.Len() != 0 {
		t.Error("nil object should have zero length")
	}
}
