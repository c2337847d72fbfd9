// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// ErrUnsupportedLiteralType reports a value whose kind is outside what
// the accessing code can interpret: a JSON null where a value is
// required, the zero Literal, or a kind the caller's coercion rules do
// not cover. Callers treat it as recoverable (non-match or default).
var ErrUnsupportedLiteralType = errors.New("unsupported literal type")

// Kind identifies which variant a Literal holds.
type Kind uint8

const (
	// KindInvalid is the kind of the zero Literal.
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// maxSafeInteger is the largest integer a JSON number (IEEE 754
// double) represents exactly. Matrix canonical JSON restricts integers
// to this range.
const maxSafeInteger = 1<<53 - 1

// Literal is an immutable JSON-like value. Construct with String,
// Number, Int, Bool, Map, or List; the zero value is KindInvalid.
type Literal struct {
	kind    Kind
	text    string
	number  float64
	boolean bool
	object  map[string]Literal
	list    []Literal
}

// String returns a string literal.
func String(s string) Literal { return Literal{kind: KindString, text: s} }

// Number returns a numeric literal.
func Number(n float64) Literal { return Literal{kind: KindNumber, number: n} }

// Int returns a numeric literal holding an integer.
func Int(n int64) Literal { return Literal{kind: KindNumber, number: float64(n)} }

// Bool returns a boolean literal.
func Bool(b bool) Literal { return Literal{kind: KindBool, boolean: b} }

// Map returns a map literal. The map is copied; later changes to m do
// not affect the literal.
func Map(m map[string]Literal) Literal {
	return Literal{kind: KindMap, object: maps.Clone(m)}
}

// List returns a list literal. The slice is copied.
func List(items ...Literal) Literal {
	return Literal{kind: KindList, list: slices.Clone(items)}
}

// Kind returns the variant held by l.
func (l Literal) Kind() Kind { return l.kind }

// IsValid reports whether l holds one of the five supported kinds.
func (l Literal) IsValid() bool { return l.kind != KindInvalid }

// AsString returns the string value if l is a string.
func (l Literal) AsString() (string, bool) {
	return l.text, l.kind == KindString
}

// AsNumber returns the numeric value if l is a number.
func (l Literal) AsNumber() (float64, bool) {
	return l.number, l.kind == KindNumber
}

// AsInt returns the integer value if l is a number with no fractional
// part inside the exactly representable range. Strings are never
// coerced; callers that accept numeric strings parse them explicitly.
func (l Literal) AsInt() (int64, bool) {
	if l.kind != KindNumber {
		return 0, false
	}
	if math.Trunc(l.number) != l.number || math.Abs(l.number) > maxSafeInteger {
		return 0, false
	}
	return int64(l.number), true
}

// AsBool returns the boolean value if l is a bool.
func (l Literal) AsBool() (bool, bool) {
	return l.boolean, l.kind == KindBool
}

// AsMap returns a copy of the entries if l is a map.
func (l Literal) AsMap() (map[string]Literal, bool) {
	if l.kind != KindMap {
		return nil, false
	}
	return maps.Clone(l.object), true
}

// AsList returns a copy of the elements if l is a list.
func (l Literal) AsList() ([]Literal, bool) {
	if l.kind != KindList {
		return nil, false
	}
	return slices.Clone(l.list), true
}

// Field returns the entry for key if l is a map containing it. Unlike
// AsMap it does not copy.
func (l Literal) Field(key string) (Literal, bool) {
	if l.kind != KindMap {
		return Literal{}, false
	}
	value, ok := l.object[key]
	return value, ok
}

// Len returns the number of entries of a map or elements of a list,
// and zero for scalars.
func (l Literal) Len() int {
	switch l.kind {
	case KindMap:
		return len(l.object)
	case KindList:
		return len(l.list)
	default:
		return 0
	}
}

// Equal reports whether l and other have the same kind and value.
// Numbers compare by value; there is no coercion between kinds.
func (l Literal) Equal(other Literal) bool {
	if l.kind != other.kind {
		return false
	}
	switch l.kind {
	case KindString:
		return l.text == other.text
	case KindNumber:
		return l.number == other.number
	case KindBool:
		return l.boolean == other.boolean
	case KindMap:
		return maps.EqualFunc(l.object, other.object, Literal.Equal)
	case KindList:
		return slices.EqualFunc(l.list, other.list, Literal.Equal)
	default:
		return true
	}
}

// GoString renders l for debugging and test failure messages.
func (l Literal) GoString() string {
	switch l.kind {
	case KindString:
		return strconv.Quote(l.text)
	case KindNumber:
		return strconv.FormatFloat(l.number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(l.boolean)
	case KindMap, KindList:
		data, err := json.Marshal(l)
		if err != nil {
			return "<" + l.kind.String() + ">"
		}
		return string(data)
	default:
		return "<invalid>"
	}
}

// FromValue converts a value produced by encoding/json (string,
// float64, json.Number, bool, map[string]any, []any) into a Literal.
// Null entries inside maps are dropped, making them indistinguishable
// from absent keys. A null anywhere else, or any other Go type, is
// ErrUnsupportedLiteralType.
func FromValue(value any) (Literal, error) {
	switch v := value.(type) {
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return Literal{}, fmt.Errorf("number %q: %w", v, ErrUnsupportedLiteralType)
		}
		return Number(n), nil
	case bool:
		return Bool(v), nil
	case map[string]any:
		object := make(map[string]Literal, len(v))
		for key, element := range v {
			if element == nil {
				continue
			}
			converted, err := FromValue(element)
			if err != nil {
				return Literal{}, fmt.Errorf("key %q: %w", key, err)
			}
			object[key] = converted
		}
		return Literal{kind: KindMap, object: object}, nil
	case []any:
		list := make([]Literal, len(v))
		for i, element := range v {
			converted, err := FromValue(element)
			if err != nil {
				return Literal{}, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = converted
		}
		return Literal{kind: KindList, list: list}, nil
	case nil:
		return Literal{}, fmt.Errorf("null: %w", ErrUnsupportedLiteralType)
	default:
		return Literal{}, fmt.Errorf("%T: %w", value, ErrUnsupportedLiteralType)
	}
}

// Value converts l back to the encoding/json representation.
func (l Literal) Value() (any, error) {
	switch l.kind {
	case KindString:
		return l.text, nil
	case KindNumber:
		return l.number, nil
	case KindBool:
		return l.boolean, nil
	case KindMap:
		object := make(map[string]any, len(l.object))
		for key, element := range l.object {
			value, err := element.Value()
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			object[key] = value
		}
		return object, nil
	case KindList:
		list := make([]any, len(l.list))
		for i, element := range l.list {
			value, err := element.Value()
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = value
		}
		return list, nil
	default:
		return nil, ErrUnsupportedLiteralType
	}
}

// MarshalJSON implements json.Marshaler. The zero Literal does not
// marshal.
func (l Literal) MarshalJSON() ([]byte, error) {
	value, err := l.Value()
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	decoded, err := FromValue(value)
	if err != nil {
		return err
	}
	*l = decoded
	return nil
}
