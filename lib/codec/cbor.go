// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/hessian/lib/hessian"
)

var (
	// ErrCycle reports a Hessian graph that refers back to one of its
	// own ancestors. CBOR trees cannot express it.
	ErrCycle = errors.New("codec: cyclic value has no CBOR form")

	// ErrUnsupported reports a value with no counterpart on the other
	// side: a CBOR tag other than time or bignum, a simple value, an
	// integer beyond 64 bits, or a map whose keys collide once encoded.
	ErrUnsupported = errors.New("codec: unsupported value")
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Dates are written as tag 1
// with an integer when they fall on a whole second and a float
// otherwise.
var encMode cbor.EncMode

// decMode decodes into generic Go values. Map keys keep their CBOR
// type, byte-string keys become cbor.ByteString, and duplicate keys are
// rejected.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeUnixDynamic
	encOptions.TimeTag = cbor.EncTagRequired
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[any]any(nil)),
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MapKeyByteString: cbor.MapKeyByteStringAllowed,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// ToCBOR encodes v as one CBOR data item. Objects become maps holding
// their fields plus the class name under hessian.ClassKey. Shared
// composites are written once per occurrence; cycles fail with
// ErrCycle. List and map type names are dropped.
func ToCBOR(v hessian.Value) ([]byte, error) {
	raw, err := toRaw(v, make(map[hessian.Value]bool))
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

// rawKey is a map key holding its own CBOR encoding. Keys of any
// Hessian kind can then live in a Go map, and the encoder still sorts
// them by their encoded bytes.
type rawKey string

func (k rawKey) MarshalCBOR() ([]byte, error) {
	return []byte(k), nil
}

func toRaw(v hessian.Value, active map[hessian.Value]bool) (cbor.RawMessage, error) {
	switch value := v.(type) {
	case nil, hessian.Null:
		return encMode.Marshal(nil)
	case hessian.Bool:
		return encMode.Marshal(bool(value))
	case hessian.Int32:
		return encMode.Marshal(int64(value))
	case hessian.Int64:
		return encMode.Marshal(int64(value))
	case hessian.Float64:
		return encMode.Marshal(float64(value))
	case hessian.Date:
		return encMode.Marshal(value.Time())
	case hessian.String:
		return encMode.Marshal(string(value))
	case hessian.Binary:
		// A nil slice would encode as null.
		return encMode.Marshal(append([]byte{}, value...))

	case *hessian.List:
		if active[value] {
			return nil, ErrCycle
		}
		active[value] = true
		defer delete(active, value)

		elements := make([]cbor.RawMessage, len(value.Elements))
		for index, element := range value.Elements {
			raw, err := toRaw(element, active)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", index, err)
			}
			elements[index] = raw
		}
		return encMode.Marshal(elements)

	case *hessian.Map:
		if active[value] {
			return nil, ErrCycle
		}
		active[value] = true
		defer delete(active, value)

		entries := make(map[rawKey]cbor.RawMessage, len(value.Entries))
		for index, entry := range value.Entries {
			if err := putEntry(entries, entry.Key, entry.Value, active); err != nil {
				return nil, fmt.Errorf("map entry %d: %w", index, err)
			}
		}
		return encMode.Marshal(entries)

	case *hessian.Object:
		if value.Class == nil {
			return nil, fmt.Errorf("%w: object without a class definition", ErrUnsupported)
		}
		if len(value.Fields) != len(value.Class.Fields) {
			return nil, fmt.Errorf("%w: object of %s has %d fields, class declares %d",
				ErrUnsupported, value.Class.Name, len(value.Fields), len(value.Class.Fields))
		}
		if active[value] {
			return nil, ErrCycle
		}
		active[value] = true
		defer delete(active, value)

		entries := make(map[rawKey]cbor.RawMessage, len(value.Fields)+1)
		if err := putEntry(entries, hessian.String(hessian.ClassKey), hessian.String(value.Class.Name), active); err != nil {
			return nil, err
		}
		for index, field := range value.Fields {
			name := value.Class.Fields[index]
			if err := putEntry(entries, hessian.String(name), field, active); err != nil {
				return nil, fmt.Errorf("field %s of %s: %w", name, value.Class.Name, err)
			}
		}
		return encMode.Marshal(entries)
	}
	return nil, fmt.Errorf("%w: Hessian kind %s", ErrUnsupported, v.Kind())
}

func putEntry(entries map[rawKey]cbor.RawMessage, key, value hessian.Value, active map[hessian.Value]bool) error {
	rawKeyBytes, err := toRaw(key, active)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	if _, exists := entries[rawKey(rawKeyBytes)]; exists {
		return fmt.Errorf("%w: duplicate key %x", ErrUnsupported, []byte(rawKeyBytes))
	}
	raw, err := toRaw(value, active)
	if err != nil {
		return err
	}
	entries[rawKey(rawKeyBytes)] = raw
	return nil
}

// FromCBOR decodes exactly one CBOR data item into a Hessian value.
// Unsigned and negative integers narrow to Int32 when they fit,
// floats become Float64, tag 0 and tag 1 times become Dates (rounded
// to the millisecond), byte strings become Binary, and arrays become
// lists. Maps keep their keys in CBOR deterministic order. A map
// carrying hessian.ClassKey stays a map: CBOR does not say which
// fields a class declares.
func FromCBOR(data []byte) (hessian.Value, error) {
	var decoded any
	if err := decMode.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding CBOR: %w", err)
	}
	return fromCBOR(decoded)
}

func fromCBOR(v any) (hessian.Value, error) {
	switch value := v.(type) {
	case time.Time:
		return hessian.DateOf(value.Round(time.Millisecond)), nil
	case cbor.ByteString:
		return hessian.Binary(value), nil
	case big.Int:
		if !value.IsInt64() {
			return nil, fmt.Errorf("%w: integer %s needs more than 64 bits", ErrUnsupported, value.String())
		}
		return hessian.FromGo(value.Int64())
	case []any:
		list := &hessian.List{Elements: make([]hessian.Value, len(value))}
		for index, element := range value {
			converted, err := fromCBOR(element)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", index, err)
			}
			list.Elements[index] = converted
		}
		return list, nil
	case map[any]any:
		return mapFromCBOR(value)
	case cbor.Tag:
		return nil, fmt.Errorf("%w: CBOR tag %d", ErrUnsupported, value.Number)
	case cbor.SimpleValue:
		return nil, fmt.Errorf("%w: CBOR simple value %d", ErrUnsupported, value)
	case uint64:
		converted, err := hessian.FromGo(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return converted, nil
	}

	converted, err := hessian.FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
	return converted, nil
}

func mapFromCBOR(value map[any]any) (hessian.Value, error) {
	type sortable struct {
		encoded []byte
		key     any
	}
	keys := make([]sortable, 0, len(value))
	for key := range value {
		encoded, err := encMode.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("%w: map key %v: %v", ErrUnsupported, key, err)
		}
		keys = append(keys, sortable{encoded: encoded, key: key})
	}
	slices.SortFunc(keys, func(a, b sortable) int {
		return bytes.Compare(a.encoded, b.encoded)
	})

	m := &hessian.Map{Entries: make([]hessian.MapEntry, 0, len(keys))}
	for _, entry := range keys {
		key, err := fromCBOR(entry.key)
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		element, err := fromCBOR(value[entry.key])
		if err != nil {
			return nil, fmt.Errorf("map value for %v: %w", entry.key, err)
		}
		m.Put(key, element)
	}
	return m, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
