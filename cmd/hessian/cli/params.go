// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by flag groups that register their own
// flags, such as the call command's connection flags. An exported
// struct field whose pointer implements FlagBinder is bound through
// AddFlags instead of through its tags.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams returns a flag set named name with a flag for each
// tagged field of params, a pointer to a struct. It panics if params
// cannot be bound: that is a mistake in the command definition, not in
// the command line. [Command.Params] calls it for you.
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag on flagSet for each tagged field of
// params, which must be a pointer to a struct.
//
// A field is bound when it carries flag:"name" or flag:"name,n" (n is
// the one-letter shorthand). desc:"..." is the help text and
// default:"..." the default, written as it would be on the command
// line. Fields may be string, bool, int, [time.Duration], [ByteSize],
// or any other type whose pointer implements [pflag.Value].
//
// Embedded structs are walked for more tagged fields, so commands can
// share groups such as the decoder limits. Exported struct fields
// implementing [FlagBinder] bind themselves.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.IsNil() || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a non-nil pointer to a struct, got %T", params)
	}
	return bindFields(value.Elem(), flagSet)
}

// flagSpec is one field's flag tags.
type flagSpec struct {
	name        string
	shorthand   string
	usage       string
	defaultText string
}

func specFor(field reflect.StructField) (flagSpec, bool) {
	tag, ok := field.Tag.Lookup("flag")
	if !ok || tag == "" {
		return flagSpec{}, false
	}
	name, shorthand, _ := strings.Cut(tag, ",")
	return flagSpec{
		name:        name,
		shorthand:   shorthand,
		usage:       field.Tag.Get("desc"),
		defaultText: field.Tag.Get("default"),
	}, true
}

func bindFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()
	for index := range structType.NumField() {
		field := structType.Field(index)
		fieldValue := structValue.Field(index)

		if field.Type.Kind() == reflect.Struct {
			if field.IsExported() {
				if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
					binder.AddFlags(flagSet)
					continue
				}
			}
			if field.Anonymous {
				if err := bindFields(fieldValue, flagSet); err != nil {
					return fmt.Errorf("embedded %s: %w", field.Name, err)
				}
				continue
			}
		}

		spec, ok := specFor(field)
		if !ok {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("field %s: flag %q on an unexported field", field.Name, spec.name)
		}
		if err := bindField(spec, fieldValue.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// bindField registers target, a pointer to a field, as one flag.
func bindField(spec flagSpec, target any, flagSet *pflag.FlagSet) error {
	var err error
	switch target := target.(type) {
	case pflag.Value:
		if spec.defaultText != "" {
			err = target.Set(spec.defaultText)
		}
		flagSet.VarP(target, spec.name, spec.shorthand, spec.usage)
	case *string:
		flagSet.StringVarP(target, spec.name, spec.shorthand, spec.defaultText, spec.usage)
	case *bool:
		var value bool
		value, err = parseDefault(spec.defaultText, strconv.ParseBool)
		flagSet.BoolVarP(target, spec.name, spec.shorthand, value, spec.usage)
	case *int:
		var value int
		value, err = parseDefault(spec.defaultText, strconv.Atoi)
		flagSet.IntVarP(target, spec.name, spec.shorthand, value, spec.usage)
	case *time.Duration:
		var value time.Duration
		value, err = parseDefault(spec.defaultText, time.ParseDuration)
		flagSet.DurationVarP(target, spec.name, spec.shorthand, value, spec.usage)
	default:
		return fmt.Errorf("flag --%s: unsupported type %T", spec.name, target)
	}
	if err != nil {
		return fmt.Errorf("default for --%s: %w", spec.name, err)
	}
	return nil
}

// parseDefault parses a default tag; an absent default is the zero
// value.
func parseDefault[T any](text string, parse func(string) (T, error)) (T, error) {
	if text == "" {
		var zero T
		return zero, nil
	}
	return parse(text)
}
