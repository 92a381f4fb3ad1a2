// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant of a [Value].
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindDate
	KindString
	KindBinary
	KindList
	KindMap
	KindObject
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt32:   "int",
	KindInt64:   "long",
	KindFloat64: "double",
	KindDate:    "date",
	KindString:  "string",
	KindBinary:  "binary",
	KindList:    "list",
	KindMap:     "map",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is anything the codec can carry. The set of implementations is
// closed: [Null], [Bool], [Int32], [Int64], [Float64], [Date],
// [String], [Binary], [*List], [*Map], and [*Object].
//
// A nil Value is treated as [Null] by the encoder and by [Equal].
// Composites are pointers: two references to the same *List are one
// shared value on the wire, while two structurally equal lists are
// written twice.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean.
type Bool bool

// Int32 is a 32-bit signed integer ("int").
type Int32 int32

// Int64 is a 64-bit signed integer ("long").
type Int64 int64

// Float64 is an IEEE-754 double.
type Float64 float64

// Date is a UTC instant in milliseconds since the Unix epoch.
type Date int64

// String is a UTF-8 string. On the wire it is measured in Unicode
// scalar values and may be split into chunks; decoding always yields a
// single String.
type String string

// Binary is an octet sequence, possibly chunked on the wire.
type Binary []byte

func (Null) Kind() Kind    { return KindNull }
func (Bool) Kind() Kind    { return KindBool }
func (Int32) Kind() Kind   { return KindInt32 }
func (Int64) Kind() Kind   { return KindInt64 }
func (Float64) Kind() Kind { return KindFloat64 }
func (Date) Kind() Kind    { return KindDate }
func (String) Kind() Kind  { return KindString }
func (Binary) Kind() Kind  { return KindBinary }
func (*List) Kind() Kind   { return KindList }
func (*Map) Kind() Kind    { return KindMap }
func (*Object) Kind() Kind { return KindObject }

func (Null) isValue()    {}
func (Bool) isValue()    {}
func (Int32) isValue()   {}
func (Int64) isValue()   {}
func (Float64) isValue() {}
func (Date) isValue()    {}
func (String) isValue()  {}
func (Binary) isValue()  {}
func (*List) isValue()   {}
func (*Map) isValue()    {}
func (*Object) isValue() {}

// DateOf converts t to a Date, truncating to millisecond precision.
func DateOf(t time.Time) Date {
	return Date(t.UnixMilli())
}

// Time returns the instant as a UTC time.Time.
func (d Date) Time() time.Time {
	return time.UnixMilli(int64(d)).UTC()
}

// List is an ordered sequence of values.
type List struct {
	// Type is the optional element type name (e.g. "[int" or a class
	// name). Empty selects the untyped wire forms.
	Type string

	// Unbounded selects the variable-length wire form: no length
	// prefix, terminated by 'Z'. The zero value writes the compact
	// fixed-length form.
	Unbounded bool

	Elements []Value
}

// NewList returns an untyped fixed-length list of elements.
func NewList(elements ...Value) *List {
	return &List{Elements: elements}
}

// MapEntry is one key/value pair of a [Map].
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is an ordered sequence of key/value pairs. Well-formed producers
// emit unique keys, but the decoder preserves whatever the stream
// carries, duplicates included.
type Map struct {
	// Type is the optional map type name. Empty selects the untyped
	// 'H' form.
	Type string

	Entries []MapEntry
}

// Put appends a key/value pair.
func (m *Map) Put(key, value Value) {
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

// Get returns the value of the first entry whose key equals key.
func (m *Map) Get(key Value) (Value, bool) {
	for _, entry := range m.Entries {
		if Equal(entry.Key, key) {
			return entry.Value, true
		}
	}
	return nil, false
}

// ClassDef is the field-descriptor list for a class: its name and the
// fixed order of its fields. A definition is transmitted once per pass;
// objects after the first refer to it by index.
type ClassDef struct {
	Name   string
	Fields []string
}

// NewClassDef declares a class with the given field order.
func NewClassDef(name string, fields ...string) *ClassDef {
	return &ClassDef{Name: name, Fields: fields}
}

// signature identifies a definition in the class registry. Two
// definitions with the same name and field order are one class, even
// when they are distinct pointers.
func (d *ClassDef) signature() string {
	var builder strings.Builder
	writeSignaturePart(&builder, d.Name)
	for _, field := range d.Fields {
		writeSignaturePart(&builder, field)
	}
	return builder.String()
}

func writeSignaturePart(builder *strings.Builder, part string) {
	builder.WriteString(strconv.Itoa(len(part)))
	builder.WriteByte(':')
	builder.WriteString(part)
}

// FieldIndex returns the position of field name, or -1.
func (d *ClassDef) FieldIndex(name string) int {
	for index, field := range d.Fields {
		if field == name {
			return index
		}
	}
	return -1
}

// Object is an instance of a class: one value per declared field, in
// the definition's order.
type Object struct {
	Class  *ClassDef
	Fields []Value
}

// NewObject returns an object of class def. Supplying a different
// number of fields than def declares is not checked here; the encoder
// rejects it with ErrFieldArityMismatch before writing anything.
func NewObject(def *ClassDef, fields ...Value) *Object {
	return &Object{Class: def, Fields: fields}
}

// Field returns the value of the named field.
func (o *Object) Field(name string) (Value, bool) {
	index := o.Class.FieldIndex(name)
	if index < 0 || index >= len(o.Fields) {
		return nil, false
	}
	return o.Fields[index], true
}

// Set replaces the value of the named field. It reports false when the
// class has no such field.
func (o *Object) Set(name string, value Value) bool {
	index := o.Class.FieldIndex(name)
	if index < 0 || index >= len(o.Fields) {
		return false
	}
	o.Fields[index] = value
	return true
}

// orNull maps nil and typed-nil composites to Null.
func orNull(v Value) Value {
	switch value := v.(type) {
	case nil:
		return Null{}
	case *List:
		if value == nil {
			return Null{}
		}
	case *Map:
		if value == nil {
			return Null{}
		}
	case *Object:
		if value == nil {
			return Null{}
		}
	}
	return v
}

// Equal reports whether a and b are structurally equal. Composites are
// compared by content, not identity, and cyclic graphs terminate: a
// pair of composites already under comparison is assumed equal.
// Doubles compare by bit pattern, so NaN equals NaN and -0 differs
// from +0. Classes compare by signature.
func Equal(a, b Value) bool {
	return equalValues(a, b, make(map[[2]Value]bool))
}

func equalValues(a, b Value, visiting map[[2]Value]bool) bool {
	a, b = orNull(a), orNull(b)
	if a.Kind() != b.Kind() {
		return false
	}

	switch left := a.(type) {
	case Null:
		return true
	case Bool:
		return left == b.(Bool)
	case Int32:
		return left == b.(Int32)
	case Int64:
		return left == b.(Int64)
	case Float64:
		return math.Float64bits(float64(left)) == math.Float64bits(float64(b.(Float64)))
	case Date:
		return left == b.(Date)
	case String:
		return left == b.(String)
	case Binary:
		return bytes.Equal(left, b.(Binary))
	}

	pair := [2]Value{a, b}
	if visiting[pair] {
		return true
	}
	visiting[pair] = true

	switch left := a.(type) {
	case *List:
		right := b.(*List)
		if left == right {
			return true
		}
		if left.Type != right.Type || left.Unbounded != right.Unbounded ||
			len(left.Elements) != len(right.Elements) {
			return false
		}
		for index := range left.Elements {
			if !equalValues(left.Elements[index], right.Elements[index], visiting) {
				return false
			}
		}
		return true

	case *Map:
		right := b.(*Map)
		if left == right {
			return true
		}
		if left.Type != right.Type || len(left.Entries) != len(right.Entries) {
			return false
		}
		for index := range left.Entries {
			if !equalValues(left.Entries[index].Key, right.Entries[index].Key, visiting) ||
				!equalValues(left.Entries[index].Value, right.Entries[index].Value, visiting) {
				return false
			}
		}
		return true

	case *Object:
		right := b.(*Object)
		if left == right {
			return true
		}
		if (left.Class == nil) != (right.Class == nil) {
			return false
		}
		if left.Class != nil && left.Class.signature() != right.Class.signature() {
			return false
		}
		if len(left.Fields) != len(right.Fields) {
			return false
		}
		for index := range left.Fields {
			if !equalValues(left.Fields[index], right.Fields[index], visiting) {
				return false
			}
		}
		return true
	}
	return false
}
