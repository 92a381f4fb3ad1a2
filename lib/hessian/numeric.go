// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"encoding/binary"
	"math"
)

// appendInt32 appends the canonical (narrowest) encoding of v.
func appendInt32(buf []byte, v int32) []byte {
	switch {
	case IntDirectMin <= v && v <= IntDirectMax:
		return append(buf, byte(int32(TagIntZero)+v))
	case IntByteMin <= v && v <= IntByteMax:
		return append(buf, byte(int32(TagIntByteZero)+(v>>8)), byte(v))
	case IntShortMin <= v && v <= IntShortMax:
		return append(buf, byte(int32(TagIntShortZero)+(v>>16)), byte(v>>8), byte(v))
	}
	buf = append(buf, TagInt)
	return binary.BigEndian.AppendUint32(buf, uint32(v))
}

// appendInt64 appends the canonical (narrowest) encoding of v.
func appendInt64(buf []byte, v int64) []byte {
	switch {
	case LongDirectMin <= v && v <= LongDirectMax:
		return append(buf, byte(int64(TagLongZero)+v))
	case LongByteMin <= v && v <= LongByteMax:
		return append(buf, byte(int64(TagLongByteZero)+(v>>8)), byte(v))
	case LongShortMin <= v && v <= LongShortMax:
		return append(buf, byte(int64(TagLongShortZero)+(v>>16)), byte(v>>8), byte(v))
	case math.MinInt32 <= v && v <= math.MaxInt32:
		buf = append(buf, TagLongInt)
		return binary.BigEndian.AppendUint32(buf, uint32(int32(v)))
	}
	buf = append(buf, TagLong)
	return binary.BigEndian.AppendUint64(buf, uint64(v))
}

// appendFloat64 appends v. Only the exact values +0.0 and 1.0 have
// short forms on the write side; the byte, short, and mill forms are
// accepted by the decoder for peers that produce them.
func appendFloat64(buf []byte, v float64) []byte {
	bits := math.Float64bits(v)
	switch bits {
	case 0:
		return append(buf, TagDoubleZero)
	case math.Float64bits(1):
		return append(buf, TagDoubleOne)
	}
	buf = append(buf, TagDouble)
	return binary.BigEndian.AppendUint64(buf, bits)
}

// appendDate appends a millisecond date in its fixed 8-byte form.
func appendDate(buf []byte, milliseconds int64) []byte {
	buf = append(buf, TagDate)
	return binary.BigEndian.AppendUint64(buf, uint64(milliseconds))
}
