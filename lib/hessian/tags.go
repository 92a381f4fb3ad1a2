// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import "fmt"

// Wire tag bytes for Hessian 2.0.
//
// These values are FROZEN. A tag byte never changes meaning; changing
// one breaks interoperability with every deployed peer.
//
//	x00 - x1f    utf-8 string, length 0-31
//	x20 - x2f    binary, length 0-15
//	x30 - x33    utf-8 string, length 0-1023
//	x34 - x37    binary, length 0-1023
//	x38 - x3f    three-octet compact long (-x40000 to x3ffff)
//	x41 'A'      binary non-final chunk
//	x42 'B'      binary final chunk
//	x43 'C'      class definition
//	x44 'D'      64-bit IEEE double
//	x46 'F'      false
//	x48 'H'      untyped map
//	x49 'I'      32-bit int
//	x4a          64-bit UTC millisecond date
//	x4b          32-bit UTC minute date (read only)
//	x4c 'L'      64-bit long
//	x4d 'M'      typed map
//	x4e 'N'      null
//	x4f 'O'      object instance
//	x51 'Q'      reference
//	x52 'R'      utf-8 string non-final chunk
//	x53 'S'      utf-8 string final chunk
//	x54 'T'      true
//	x55          variable-length typed list
//	x56 'V'      fixed-length typed list
//	x57          variable-length untyped list
//	x58 'X'      fixed-length untyped list
//	x59 'Y'      long encoded as 32-bit int
//	x5a 'Z'      list/map terminator
//	x5b          double 0.0
//	x5c          double 1.0
//	x5d          double as byte (read only)
//	x5e          double as short (read only)
//	x5f          double as float mills (read only)
//	x60 - x6f    object with direct class index
//	x70 - x77    fixed typed list, length 0-7
//	x78 - x7f    fixed untyped list, length 0-7
//	x80 - xbf    one-octet compact int (-x10 to x2f, x90 is 0)
//	xc0 - xcf    two-octet compact int (-x800 to x7ff)
//	xd0 - xd7    three-octet compact int (-x40000 to x3ffff)
//	xd8 - xef    one-octet compact long (-x8 to xf, xe0 is 0)
//	xf0 - xff    two-octet compact long (-x800 to x7ff, xf8 is 0)
const (
	TagNull  byte = 'N'
	TagTrue  byte = 'T'
	TagFalse byte = 'F'

	TagInt          byte = 'I'
	TagIntZero      byte = 0x90
	TagIntByteZero  byte = 0xc8
	TagIntShortZero byte = 0xd4

	TagLong          byte = 'L'
	TagLongInt       byte = 0x59
	TagLongZero      byte = 0xe0
	TagLongByteZero  byte = 0xf8
	TagLongShortZero byte = 0x3c

	TagDouble      byte = 'D'
	TagDoubleZero  byte = 0x5b
	TagDoubleOne   byte = 0x5c
	TagDoubleByte  byte = 0x5d
	TagDoubleShort byte = 0x5e
	TagDoubleMill  byte = 0x5f

	TagDate       byte = 0x4a
	TagDateMinute byte = 0x4b

	TagString       byte = 'S'
	TagStringChunk  byte = 'R'
	TagStringDirect byte = 0x00
	TagStringShort  byte = 0x30

	TagBinary       byte = 'B'
	TagBinaryChunk  byte = 'A'
	TagBinaryDirect byte = 0x20
	TagBinaryShort  byte = 0x34

	TagListVariable        byte = 0x55
	TagListFixed           byte = 'V'
	TagListVariableUntyped byte = 0x57
	TagListFixedUntyped    byte = 'X'
	TagListDirect          byte = 0x70
	TagListDirectUntyped   byte = 0x78

	TagMap        byte = 'M'
	TagMapUntyped byte = 'H'
	TagEnd        byte = 'Z'

	TagClassDef     byte = 'C'
	TagObject       byte = 'O'
	TagObjectDirect byte = 0x60

	TagRef byte = 'Q'
)

// Tier bounds. A value inside a bound is always written with that
// tier's tag; see Encoder.WriteInt32 and Encoder.WriteInt64.
const (
	IntDirectMin = -0x10
	IntDirectMax = 0x2f
	IntByteMin   = -0x800
	IntByteMax   = 0x7ff
	IntShortMin  = -0x40000
	IntShortMax  = 0x3ffff

	LongDirectMin = -0x08
	LongDirectMax = 0x0f
	LongByteMin   = -0x800
	LongByteMax   = 0x7ff
	LongShortMin  = -0x40000
	LongShortMax  = 0x3ffff

	StringDirectMax = 0x1f
	StringShortMax  = 0x3ff
	BinaryDirectMax = 0x0f
	BinaryShortMax  = 0x3ff
	ListDirectMax   = 0x07
	ObjectDirectMax = 0x0f
)

// DefaultChunkSize is the largest chunk the encoder emits unless
// configured otherwise, counted in characters for strings and octets
// for binaries. MaxChunkLength is the largest length a 16-bit chunk
// header can declare.
const (
	DefaultChunkSize = 0x8000
	MaxChunkLength   = 0xffff
)

// TagName describes the value a tag byte introduces, for diagnostics.
// Unassigned bytes are reported as "reserved".
func TagName(tag byte) string {
	switch {
	case tag <= 0x1f:
		return "string (compact)"
	case tag <= 0x2f:
		return "binary (compact)"
	case tag <= 0x33:
		return "string (short)"
	case tag <= 0x37:
		return "binary (short)"
	case tag <= 0x3f:
		return "long (short)"
	case tag >= 0x60 && tag <= 0x6f:
		return "object (direct)"
	case tag >= 0x70 && tag <= 0x77:
		return "list (fixed, typed, direct)"
	case tag >= 0x78 && tag <= 0x7f:
		return "list (fixed, untyped, direct)"
	case tag >= 0x80 && tag <= 0xbf:
		return "int (direct)"
	case tag >= 0xc0 && tag <= 0xcf:
		return "int (byte)"
	case tag >= 0xd0 && tag <= 0xd7:
		return "int (short)"
	case tag >= 0xd8 && tag <= 0xef:
		return "long (direct)"
	case tag >= 0xf0:
		return "long (byte)"
	}

	switch tag {
	case TagBinaryChunk:
		return "binary (chunk)"
	case TagBinary:
		return "binary"
	case TagClassDef:
		return "class definition"
	case TagDouble:
		return "double"
	case TagFalse:
		return "false"
	case TagMapUntyped:
		return "map (untyped)"
	case TagInt:
		return "int"
	case TagDate:
		return "date"
	case TagDateMinute:
		return "date (minutes)"
	case TagLong:
		return "long"
	case TagMap:
		return "map"
	case TagNull:
		return "null"
	case TagObject:
		return "object"
	case TagRef:
		return "ref"
	case TagStringChunk:
		return "string (chunk)"
	case TagString:
		return "string"
	case TagTrue:
		return "true"
	case TagListVariable:
		return "list (variable, typed)"
	case TagListFixed:
		return "list (fixed, typed)"
	case TagListVariableUntyped:
		return "list (variable, untyped)"
	case TagListFixedUntyped:
		return "list (fixed, untyped)"
	case TagLongInt:
		return "long (int)"
	case TagEnd:
		return "end"
	case TagDoubleZero:
		return "double (zero)"
	case TagDoubleOne:
		return "double (one)"
	case TagDoubleByte:
		return "double (byte)"
	case TagDoubleShort:
		return "double (short)"
	case TagDoubleMill:
		return "double (mill)"
	}
	return "reserved"
}

// formatTag renders a tag byte for error messages.
func formatTag(tag byte) string {
	if tag >= 0x20 && tag < 0x7f {
		return fmt.Sprintf("0x%02x '%c'", tag, tag)
	}
	return fmt.Sprintf("0x%02x", tag)
}
