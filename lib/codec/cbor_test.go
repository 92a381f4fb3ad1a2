// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bureau-foundation/hessian/lib/hessian"
)

func mapOf(pairs ...hessian.Value) *hessian.Map {
	m := &hessian.Map{}
	for index := 0; index < len(pairs); index += 2 {
		m.Put(pairs[index], pairs[index+1])
	}
	return m
}

func TestToCBORScalars(t *testing.T) {
	tests := []struct {
		name  string
		value hessian.Value
		want  []byte
	}{
		{"null", hessian.Null{}, []byte{0xf6}},
		{"true", hessian.Bool(true), []byte{0xf5}},
		{"false", hessian.Bool(false), []byte{0xf4}},
		{"small int", hessian.Int32(10), []byte{0x0a}},
		{"negative int", hessian.Int32(-1), []byte{0x20}},
		{"long", hessian.Int64(1 << 32), []byte{0x1b, 0, 0, 0, 1, 0, 0, 0, 0}},
		{"double shortest form", hessian.Float64(1.5), []byte{0xf9, 0x3e, 0x00}},
		{"string", hessian.String("hi"), []byte{0x62, 'h', 'i'}},
		{"binary", hessian.Binary{1, 2}, []byte{0x42, 1, 2}},
		{"nil binary", hessian.Binary(nil), []byte{0x40}},
		{"whole-second date", hessian.Date(1000), []byte{0xc1, 0x01}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := ToCBOR(test.value)
			require.NoError(t, err)
			require.Equal(t, test.want, data)
		})
	}
}

func TestToCBORComposites(t *testing.T) {
	list := hessian.NewList(hessian.Int32(1), hessian.String("a"))
	data, err := ToCBOR(list)
	require.NoError(t, err)
	require.Equal(t, []byte{0x82, 0x01, 0x61, 'a'}, data)

	// Keys come out in encoded-byte order regardless of entry order.
	m := mapOf(hessian.String("b"), hessian.Int32(2), hessian.String("a"), hessian.Int32(1), hessian.Int32(10), hessian.Null{})
	data, err = ToCBOR(m)
	require.NoError(t, err)
	require.Equal(t, []byte{0xa3, 0x0a, 0xf6, 0x61, 'a', 0x01, 0x61, 'b', 0x02}, data)

	point := hessian.NewObject(hessian.NewClassDef("Point", "x", "y"), hessian.Int32(1), hessian.Int32(2))
	data, err = ToCBOR(point)
	require.NoError(t, err)
	decoded, err := FromCBOR(data)
	require.NoError(t, err)
	// "$class" encodes with a longer length prefix, so it sorts last.
	want := mapOf(
		hessian.String("x"), hessian.Int32(1),
		hessian.String("y"), hessian.Int32(2),
		hessian.String(hessian.ClassKey), hessian.String("Point"),
	)
	require.True(t, hessian.Equal(want, decoded), "object decoded as %#v", decoded)
}

func TestToCBORDeterministic(t *testing.T) {
	first, err := ToCBOR(mapOf(hessian.String("x"), hessian.Int32(1), hessian.String("y"), hessian.Int32(2)))
	require.NoError(t, err)
	second, err := ToCBOR(mapOf(hessian.String("y"), hessian.Int32(2), hessian.String("x"), hessian.Int32(1)))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestToCBORSharedComposite(t *testing.T) {
	shared := hessian.NewList(hessian.Int32(7))
	data, err := ToCBOR(hessian.NewList(shared, shared))
	require.NoError(t, err)
	require.Equal(t, []byte{0x82, 0x81, 0x07, 0x81, 0x07}, data)
}

func TestToCBORRejects(t *testing.T) {
	cyclic := hessian.NewList()
	cyclic.Elements = append(cyclic.Elements, cyclic)
	_, err := ToCBOR(cyclic)
	require.ErrorIs(t, err, ErrCycle)

	node := hessian.NewObject(hessian.NewClassDef("Node", "next"), hessian.Null{})
	node.Fields[0] = node
	_, err = ToCBOR(node)
	require.ErrorIs(t, err, ErrCycle)

	_, err = ToCBOR(mapOf(hessian.String("k"), hessian.Int32(1), hessian.String("k"), hessian.Int32(2)))
	require.ErrorIs(t, err, ErrUnsupported)

	// Int32 and Int64 of equal value encode to the same key.
	_, err = ToCBOR(mapOf(hessian.Int32(1), hessian.Null{}, hessian.Int64(1), hessian.Null{}))
	require.ErrorIs(t, err, ErrUnsupported)

	clash := hessian.NewObject(hessian.NewClassDef("Odd", hessian.ClassKey), hessian.String("x"))
	_, err = ToCBOR(clash)
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = ToCBOR(&hessian.Object{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRoundtrip(t *testing.T) {
	values := []hessian.Value{
		hessian.Null{},
		hessian.Bool(true),
		hessian.Int32(-2048),
		hessian.Int64(-1 << 40),
		hessian.Float64(3.25),
		hessian.Date(1700000000123),
		hessian.Date(-86400000),
		hessian.String("héllo, 世界"),
		hessian.Binary{0xde, 0xad, 0xbe, 0xef},
		hessian.NewList(),
		hessian.NewList(hessian.Int32(1), hessian.NewList(hessian.String("nested"))),
		mapOf(hessian.Int32(1), hessian.String("one"), hessian.String("a"), hessian.Bool(false)),
		mapOf(hessian.Binary{1}, hessian.Null{}),
	}

	for _, value := range values {
		data, err := ToCBOR(value)
		require.NoError(t, err, "ToCBOR(%#v)", value)
		decoded, err := FromCBOR(data)
		require.NoError(t, err, "FromCBOR(% x)", data)
		require.True(t, hessian.Equal(value, decoded), "roundtrip of %#v gave %#v", value, decoded)
	}
}

func TestFromCBORNarrowsIntegers(t *testing.T) {
	data, err := ToCBOR(hessian.Int64(5))
	require.NoError(t, err)
	decoded, err := FromCBOR(data)
	require.NoError(t, err)
	require.Equal(t, hessian.Int32(5), decoded)
}

func TestFromCBORDates(t *testing.T) {
	// 0("2026-01-02T03:04:05.5Z"), an RFC 3339 time.
	text := "2026-01-02T03:04:05.5Z"
	data := append([]byte{0xc0, 0x60 + byte(len(text))}, text...)
	decoded, err := FromCBOR(data)
	require.NoError(t, err)
	date, ok := decoded.(hessian.Date)
	require.True(t, ok, "decoded %#v", decoded)
	require.Equal(t, "2026-01-02T03:04:05.5Z", date.Time().Format("2006-01-02T15:04:05.999Z"))
}

func TestFromCBORRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"trailing bytes", []byte{0x01, 0x02}},
		{"uint64 beyond int64", []byte{0x1b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"big negative", []byte{0x3b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"unknown tag", []byte{0xd8, 0x20, 0x61, 'x'}},
		{"simple value", []byte{0xf0}},
		{"duplicate keys", []byte{0xa2, 0x01, 0x01, 0x01, 0x02}},
		{"truncated array", []byte{0x82, 0x01}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromCBOR(test.data)
			require.Error(t, err)
		})
	}
}

func TestFromCBORBignumThatFits(t *testing.T) {
	// 2(h'0100'), the bignum 256.
	decoded, err := FromCBOR([]byte{0xc2, 0x42, 0x01, 0x00})
	require.NoError(t, err)
	require.Equal(t, hessian.Int32(256), decoded)
}

func TestDiagnose(t *testing.T) {
	data, err := ToCBOR(mapOf(hessian.String("a"), hessian.NewList(hessian.Int32(1), hessian.Bool(true))))
	require.NoError(t, err)
	diagnostic, err := Diagnose(data)
	require.NoError(t, err)
	require.True(t, strings.Contains(diagnostic, `"a": [1, true]`), "diagnostic %q", diagnostic)
}
