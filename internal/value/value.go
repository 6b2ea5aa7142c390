// Package value implements the dynamic values exchanged between script code
// and native extensions.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	// KNull is the null value; also the zero Value.
	KNull Kind = iota
	// KInt is a signed integer.
	KInt
	// KFloat is a double precision float.
	KFloat
	// KString is an immutable string.
	KString
	// KBool is a boolean.
	KBool
	// KStruct references a native structure.
	KStruct
	// KArray is an immutable list of values.
	KArray
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KNull:
		return "null"
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KString:
		return "string"
	case KBool:
		return "bool"
	case KStruct:
		return "struct"
	case KArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is a tagged dynamic value.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	ref  any
	arr  []Value
}

// Null is the null value.
var Null = Value{}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KInt, i: v} }

// Float returns a float value.
func Float(v float64) Value { return Value{kind: KFloat, f: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KString, s: v} }

// Bool returns a boolean value.
func Bool(v bool) Value {
	if v {
		return Value{kind: KBool, i: 1}
	}
	return Value{kind: KBool}
}

// StructRef wraps a reference to a native structure. A nil ref yields Null.
func StructRef(ref any) Value {
	if ref == nil {
		return Null
	}
	return Value{kind: KStruct, ref: ref}
}

// Array wraps elems. The slice is not copied.
func Array(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KArray, arr: elems}
}

// Strings builds an array of string values.
func Strings(ss []string) Value {
	elems := make([]Value, len(ss))
	for i, s := range ss {
		elems[i] = String(s)
	}
	return Array(elems)
}

// Kind reports the runtime type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KNull }

// AsInt returns the integer payload. Floats are truncated.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KInt, KBool:
		return v.i, true
	case KFloat:
		return int64(v.f), true
	default:
		return 0, false
	}
}

// AsFloat returns the numeric payload as float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KFloat:
		return v.f, true
	case KInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the boolean payload. Integers are true when non-zero.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KBool, KInt:
		return v.i != 0, true
	default:
		return false, false
	}
}

// Ref returns the referenced native structure of a KStruct value.
func (v Value) Ref() any {
	if v.kind != KStruct {
		return nil
	}
	return v.ref
}

// AsArray returns the elements of a KArray value.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) String() string {
	switch v.kind {
	case KNull:
		return "NULL"
	case KInt:
		return strconv.FormatInt(v.i, 10)
	case KFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KString:
		return strconv.Quote(v.s)
	case KBool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case KStruct:
		return fmt.Sprintf("Struct_Type(%T)", v.ref)
	case KArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}
