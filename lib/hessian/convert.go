// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
)

// ClassKey is the map key under which ToGo records an object's class
// name.
const ClassKey = "$class"

// FromGo converts a Go native value to a Value.
//
// Supported: nil, Value, bool, the sized and unsized integer types,
// float32, float64, json.Number, string, []byte, time.Time, []any,
// []Value, map[string]any, and map[any]any. Integers use Int32 when
// they fit and Int64 otherwise. Map entries are ordered by key so the
// result (and its encoding) does not depend on Go map iteration order.
func FromGo(v any) (Value, error) {
	switch value := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return orNull(value), nil
	case bool:
		return Bool(value), nil
	case int:
		return fromInt64(int64(value)), nil
	case int8:
		return Int32(value), nil
	case int16:
		return Int32(value), nil
	case int32:
		return Int32(value), nil
	case int64:
		return fromInt64(value), nil
	case uint:
		return fromUint64(uint64(value))
	case uint8:
		return Int32(value), nil
	case uint16:
		return Int32(value), nil
	case uint32:
		return fromInt64(int64(value)), nil
	case uint64:
		return fromUint64(value)
	case float32:
		return Float64(value), nil
	case float64:
		return Float64(value), nil
	case json.Number:
		return FromNumber(value)
	case string:
		return String(value), nil
	case []byte:
		return Binary(value), nil
	case time.Time:
		return DateOf(value), nil
	case []Value:
		list := &List{Elements: make([]Value, len(value))}
		for index, element := range value {
			list.Elements[index] = orNull(element)
		}
		return list, nil
	case []any:
		list := &List{Elements: make([]Value, 0, len(value))}
		for index, element := range value {
			converted, err := FromGo(element)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", index, err)
			}
			list.Elements = append(list.Elements, converted)
		}
		return list, nil
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		m := &Map{Entries: make([]MapEntry, 0, len(keys))}
		for _, key := range keys {
			converted, err := FromGo(value[key])
			if err != nil {
				return nil, fmt.Errorf("map entry %q: %w", key, err)
			}
			m.Entries = append(m.Entries, MapEntry{Key: String(key), Value: converted})
		}
		return m, nil
	case map[any]any:
		type entry struct {
			sortKey string
			MapEntry
		}
		entries := make([]entry, 0, len(value))
		for key, element := range value {
			convertedKey, err := FromGo(key)
			if err != nil {
				return nil, fmt.Errorf("map key %v: %w", key, err)
			}
			convertedValue, err := FromGo(element)
			if err != nil {
				return nil, fmt.Errorf("map entry %v: %w", key, err)
			}
			entries = append(entries, entry{
				sortKey:  fmt.Sprintf("%T:%v", key, key),
				MapEntry: MapEntry{Key: convertedKey, Value: convertedValue},
			})
		}
		slices.SortFunc(entries, func(a, b entry) int {
			switch {
			case a.sortKey < b.sortKey:
				return -1
			case a.sortKey > b.sortKey:
				return 1
			}
			return 0
		})
		m := &Map{Entries: make([]MapEntry, len(entries))}
		for index, sorted := range entries {
			m.Entries[index] = sorted.MapEntry
		}
		return m, nil
	}
	return nil, invalidValue(ErrInvalidValue, "unsupported Go type %T", v)
}

// FromNumber narrows a JSON number to the smallest numeric variant that
// holds it exactly: Int32, then Int64, then Float64.
func FromNumber(number json.Number) (Value, error) {
	if integer, err := strconv.ParseInt(string(number), 10, 64); err == nil {
		return fromInt64(integer), nil
	}
	float, err := strconv.ParseFloat(string(number), 64)
	if err != nil {
		return nil, invalidValue(ErrInvalidValue, "invalid number %q", string(number))
	}
	return Float64(float), nil
}

func fromInt64(v int64) Value {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return Int32(v)
	}
	return Int64(v)
}

func fromUint64(v uint64) (Value, error) {
	if v > math.MaxInt64 {
		return nil, invalidValue(ErrInvalidValue, "unsigned integer %d overflows a 64-bit long", v)
	}
	return fromInt64(int64(v)), nil
}

// ToGo converts a Value to Go natives: nil, bool, int32, int64,
// float64, time.Time (UTC), string, []byte, []any, and maps. A map
// whose keys are all strings becomes map[string]any; any other map
// becomes map[any]any. An object becomes map[string]any holding its
// fields and its class name under ClassKey.
//
// Go natives cannot express cycles, so a cyclic graph is rejected with
// ErrInvalidValue. Shared acyclic composites are converted once per
// occurrence.
func ToGo(v Value) (any, error) {
	return toGo(v, make(map[Value]bool))
}

func toGo(v Value, active map[Value]bool) (any, error) {
	switch value := orNull(v).(type) {
	case Null:
		return nil, nil
	case Bool:
		return bool(value), nil
	case Int32:
		return int32(value), nil
	case Int64:
		return int64(value), nil
	case Float64:
		return float64(value), nil
	case Date:
		return value.Time(), nil
	case String:
		return string(value), nil
	case Binary:
		return []byte(value), nil
	}

	if active[v] {
		return nil, invalidValue(ErrInvalidValue, "cyclic %s cannot be converted to Go values", v.Kind())
	}
	active[v] = true
	defer delete(active, v)

	switch value := v.(type) {
	case *List:
		result := make([]any, len(value.Elements))
		for index, element := range value.Elements {
			converted, err := toGo(element, active)
			if err != nil {
				return nil, err
			}
			result[index] = converted
		}
		return result, nil

	case *Map:
		if stringKeys(value) {
			result := make(map[string]any, len(value.Entries))
			for _, entry := range value.Entries {
				converted, err := toGo(entry.Value, active)
				if err != nil {
					return nil, err
				}
				result[string(entry.Key.(String))] = converted
			}
			return result, nil
		}
		result := make(map[any]any, len(value.Entries))
		for _, entry := range value.Entries {
			switch orNull(entry.Key).(type) {
			case Binary, *List, *Map, *Object:
				return nil, invalidValue(ErrInvalidValue, "%s map key cannot be converted to a Go map key", entry.Key.Kind())
			}
			key, err := toGo(entry.Key, active)
			if err != nil {
				return nil, err
			}
			converted, err := toGo(entry.Value, active)
			if err != nil {
				return nil, err
			}
			result[key] = converted
		}
		return result, nil

	case *Object:
		if value.Class == nil || len(value.Fields) != len(value.Class.Fields) {
			return nil, invalidValue(ErrInvalidValue, "object without a matching class definition")
		}
		result := make(map[string]any, len(value.Fields)+1)
		result[ClassKey] = value.Class.Name
		for index, field := range value.Fields {
			converted, err := toGo(field, active)
			if err != nil {
				return nil, err
			}
			result[value.Class.Fields[index]] = converted
		}
		return result, nil
	}
	return nil, invalidValue(ErrInvalidValue, "unsupported value %T", v)
}

func stringKeys(m *Map) bool {
	for _, entry := range m.Entries {
		if _, ok := entry.Key.(String); !ok {
			return false
		}
	}
	return true
}
