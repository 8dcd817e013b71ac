// Package jsontree decodes JSON documents into generic trees that keep object
// keys in document order.
//
// Column order of a flattened dataset and property order of a schema both
// follow the order keys appear in the source, which map-based decoding loses.
//
// Decoded values are *Object, []any, string, int64 (integral numbers that fit),
// float64, bool and nil.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// ErrMalformed is returned for documents that are not valid JSON.
var ErrMalformed = errors.New("malformed json")

// Object is a JSON object with keys in document order.
type Object struct {
	Keys   []string
	Values map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{Values: make(map[string]any)}
}

// Set stores v under k. A repeated key keeps its first position.
func (o *Object) Set(k string, v any) {
	if _, ok := o.Values[k]; !ok {
		o.Keys = append(o.Keys, k)
	}
	o.Values[k] = v
}

// Get returns the value under k.
func (o *Object) Get(k string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Values[k]
	return v, ok
}

// Object returns the value under k when it is an object.
func (o *Object) Object(k string) (*Object, bool) {
	v, _ := o.Get(k)
	obj, ok := v.(*Object)
	return obj, ok
}

// Array returns the value under k when it is an array.
func (o *Object) Array(k string) ([]any, bool) {
	v, _ := o.Get(k)
	arr, ok := v.([]any)
	return arr, ok
}

// String returns the value under k when it is a string.
func (o *Object) String(k string) (string, bool) {
	v, _ := o.Get(k)
	s, ok := v.(string)
	return s, ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Keys)
}

// Decode parses a JSON document.
func Decode(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid syntax", ErrMalformed)
	}
	raw, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodeValue(raw, typ)
}

func decodeValue(raw []byte, typ jsonparser.ValueType) (any, error) {
	switch typ {
	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(raw, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			v, err := decodeValue(value, dt)
			if err != nil {
				return err
			}
			obj.Set(k, v)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return obj, nil

	case jsonparser.Array:
		out := []any{}
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, e error) {
			if inner != nil {
				return
			}
			if e != nil {
				inner = e
				return
			}
			v, err := decodeValue(value, dt)
			if err != nil {
				inner = err
				return
			}
			out = append(out, v)
		})
		if err == nil {
			err = inner
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return out, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return s, nil

	case jsonparser.Number:
		return decodeNumber(raw)

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return b, nil

	case jsonparser.Null:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown value type", ErrMalformed)
}

func decodeNumber(raw []byte) (any, error) {
	if !bytes.ContainsAny(raw, ".eE") {
		if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return f, nil
}
