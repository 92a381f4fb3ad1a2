// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Encoder writes Hessian values to a sink.
//
// Output accumulates in memory and reaches the sink on [Encoder.Flush]
// ([Encoder.Encode] flushes itself), so a value rejected by validation
// never leaves partial bytes on the wire. The streaming Write methods
// do not return errors: misuse (an unbalanced WriteListEnd, a fixed
// list with the wrong element count) is recorded and reported by the
// next Flush, which then discards the pending bytes instead of writing
// them.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w         io.Writer
	buf       []byte
	chunkSize int
	err       error

	refs    encodeRefs
	classes classRegistry
	types   typeRegistry

	// frames tracks containers opened with WriteListStart and
	// WriteMapStart, innermost last.
	frames []frame
}

// frame is one open streaming container.
type frame struct {
	isMap     bool
	unbounded bool
	declared  int
	written   int
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithChunkSize sets the largest string or binary chunk the encoder
// emits, in characters or octets. Values outside [1, MaxChunkLength]
// are clamped.
func WithChunkSize(size int) EncoderOption {
	return func(e *Encoder) {
		e.chunkSize = min(max(size, 1), MaxChunkLength)
	}
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, options ...EncoderOption) *Encoder {
	e := &Encoder{w: w, chunkSize: DefaultChunkSize}
	for _, option := range options {
		option(e)
	}
	return e
}

// Marshal encodes v as one independent pass and returns the bytes.
func Marshal(v Value, options ...EncoderOption) ([]byte, error) {
	var buffer bytes.Buffer
	if err := NewEncoder(&buffer, options...).Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Encode writes v as one independent pass: the tables are cleared
// before and after, and the bytes are flushed to the sink. If v is
// malformed nothing is written.
func (e *Encoder) Encode(v Value) error {
	e.resetTables()
	defer e.resetTables()
	if err := e.WriteValue(v); err != nil {
		return err
	}
	return e.Flush()
}

// WriteValue writes v within the current pass. The whole graph is
// validated first; on error nothing is appended.
func (e *Encoder) WriteValue(v Value) error {
	if err := validate(v); err != nil {
		return err
	}
	e.element()
	e.writeValue(v)
	return nil
}

// Flush writes pending bytes to the sink. If a streaming call was
// misused since the last flush, the pending bytes are discarded and
// the recorded error is returned.
func (e *Encoder) Flush() error {
	if e.err != nil {
		err := e.err
		e.err = nil
		e.buf = e.buf[:0]
		e.frames = e.frames[:0]
		return err
	}
	if open := len(e.frames); open > 0 {
		e.buf = e.buf[:0]
		e.frames = e.frames[:0]
		return invalidValue(ErrInvalidValue, "flush with %d unterminated containers", open)
	}
	if len(e.buf) == 0 {
		return nil
	}
	_, err := e.w.Write(e.buf)
	e.buf = e.buf[:0]
	if err != nil {
		return &Error{Kind: ErrIOFailure, Offset: -1, Detail: "writing to sink", Cause: err}
	}
	return nil
}

// Reset ends the current pass: the reference table, class registry,
// and type table are cleared, and pending unflushed bytes are dropped.
func (e *Encoder) Reset() {
	e.resetTables()
	e.buf = e.buf[:0]
	e.frames = e.frames[:0]
	e.err = nil
}

func (e *Encoder) resetTables() {
	e.refs.reset()
	e.classes.reset()
	e.types.reset()
}

// Buffered returns the number of bytes waiting for Flush.
func (e *Encoder) Buffered() int {
	return len(e.buf)
}

// WriteRaw appends bytes verbatim. It exists for framing layers (see
// lib/envelope) that put protocol headers around values; the bytes are
// not counted as a container element.
func (e *Encoder) WriteRaw(p ...byte) {
	e.buf = append(e.buf, p...)
}

// WriteNull writes 'N'.
func (e *Encoder) WriteNull() {
	e.element()
	e.buf = append(e.buf, TagNull)
}

// WriteBool writes 'T' or 'F'.
func (e *Encoder) WriteBool(v bool) {
	e.element()
	e.writeBool(v)
}

// WriteInt32 writes v in the narrowest of the four int tiers.
func (e *Encoder) WriteInt32(v int32) {
	e.element()
	e.buf = appendInt32(e.buf, v)
}

// WriteInt64 writes v in the narrowest of the five long tiers.
func (e *Encoder) WriteInt64(v int64) {
	e.element()
	e.buf = appendInt64(e.buf, v)
}

// WriteFloat64 writes v, using the one-byte forms for exactly 0.0 and
// 1.0.
func (e *Encoder) WriteFloat64(v float64) {
	e.element()
	e.buf = appendFloat64(e.buf, v)
}

// WriteDate writes a millisecond UTC date.
func (e *Encoder) WriteDate(milliseconds int64) {
	e.element()
	e.buf = appendDate(e.buf, milliseconds)
}

// WriteString writes s, split into chunks when it is longer than the
// chunk size. s must be valid UTF-8.
func (e *Encoder) WriteString(s string) {
	e.element()
	if !utf8.ValidString(s) {
		e.fail(invalidValue(ErrInvalidValue, "string is not valid UTF-8"))
		return
	}
	e.writeString(s)
}

// WriteBinary writes b, split into chunks when it is longer than the
// chunk size.
func (e *Encoder) WriteBinary(b []byte) {
	e.element()
	e.writeBinary(b)
}

// WriteListStart opens a list. A negative length selects the
// variable-length form; otherwise exactly length elements must follow.
// An empty typ selects the untyped forms. Every list occupies a
// reference slot, so WriteRef indices stay aligned with the decoder.
func (e *Encoder) WriteListStart(typ string, length int) {
	e.element()
	typ = e.checkType(typ)
	e.refs.reserve()
	e.writeListHeader(typ, length)
	e.frames = append(e.frames, frame{unbounded: length < 0, declared: length})
}

// WriteListEnd closes the innermost list. Variable-length lists get a
// 'Z' terminator; fixed-length lists are checked against their declared
// length.
func (e *Encoder) WriteListEnd() {
	top, ok := e.pop(false)
	if !ok {
		return
	}
	if top.unbounded {
		e.buf = append(e.buf, TagEnd)
		return
	}
	if top.written != top.declared {
		e.fail(&Error{
			Kind:     ErrInvalidValue,
			Offset:   -1,
			Detail:   "fixed-length list element count",
			Expected: top.declared,
			Actual:   top.written,
		})
	}
}

// WriteMapStart opens a map. Keys and values follow alternately. An
// empty typ selects the untyped 'H' form.
func (e *Encoder) WriteMapStart(typ string) {
	e.element()
	typ = e.checkType(typ)
	e.refs.reserve()
	e.writeMapHeader(typ)
	e.frames = append(e.frames, frame{isMap: true})
}

// WriteMapEnd closes the innermost map with 'Z'.
func (e *Encoder) WriteMapEnd() {
	top, ok := e.pop(true)
	if !ok {
		return
	}
	if top.written%2 != 0 {
		e.fail(invalidValue(ErrInvalidValue, "map closed after a key with no value"))
		return
	}
	e.buf = append(e.buf, TagEnd)
}

// WriteObject writes an object of class def with the given field
// values in the definition's order. The definition record is emitted
// first if def has not been written in this pass. A field count that
// differs from the definition fails with ErrFieldArityMismatch and
// writes nothing.
func (e *Encoder) WriteObject(def *ClassDef, fields ...Value) error {
	object := &Object{Class: def, Fields: fields}
	if err := validate(object); err != nil {
		return err
	}
	e.element()
	e.writeObject(object)
	return nil
}

// WriteRef writes a back-reference to the composite at index in the
// current pass.
func (e *Encoder) WriteRef(index int) {
	e.element()
	e.writeRef(index)
}

// checkType records an invalid type name and substitutes the untyped
// form, so the container still opens and its end still balances. The
// type table never sees the bad name.
func (e *Encoder) checkType(typ string) string {
	if utf8.ValidString(typ) {
		return typ
	}
	e.fail(invalidValue(ErrInvalidValue, "type name is not valid UTF-8"))
	return ""
}

// element counts one value toward the innermost open container.
func (e *Encoder) element() {
	if len(e.frames) > 0 {
		e.frames[len(e.frames)-1].written++
	}
}

func (e *Encoder) pop(isMap bool) (frame, bool) {
	if len(e.frames) == 0 {
		e.fail(invalidValue(ErrInvalidValue, "container end with no open container"))
		return frame{}, false
	}
	top := e.frames[len(e.frames)-1]
	if top.isMap != isMap {
		e.fail(invalidValue(ErrInvalidValue, "container end does not match the open container"))
		return frame{}, false
	}
	e.frames = e.frames[:len(e.frames)-1]
	return top, true
}

// fail records the first streaming error.
func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// writeValue appends v without validation or element counting. The
// caller has validated the graph.
func (e *Encoder) writeValue(v Value) {
	switch value := orNull(v).(type) {
	case Null:
		e.buf = append(e.buf, TagNull)
	case Bool:
		e.writeBool(bool(value))
	case Int32:
		e.buf = appendInt32(e.buf, int32(value))
	case Int64:
		e.buf = appendInt64(e.buf, int64(value))
	case Float64:
		e.buf = appendFloat64(e.buf, float64(value))
	case Date:
		e.buf = appendDate(e.buf, int64(value))
	case String:
		e.writeString(string(value))
	case Binary:
		e.writeBinary(value)
	case *List:
		e.writeList(value)
	case *Map:
		e.writeMap(value)
	case *Object:
		e.writeObject(value)
	default:
		panic(fmt.Sprintf("hessian: unhandled value type %T", v))
	}
}

func (e *Encoder) writeBool(v bool) {
	if v {
		e.buf = append(e.buf, TagTrue)
	} else {
		e.buf = append(e.buf, TagFalse)
	}
}

func (e *Encoder) writeRef(index int) {
	e.buf = append(e.buf, TagRef)
	e.buf = appendInt32(e.buf, int32(index))
}

// shared writes a reference if composite was already written in this
// pass, and otherwise registers it. The registration happens before
// the caller writes any children, which is what lets a composite
// contain itself.
func (e *Encoder) shared(composite Value) bool {
	if index, ok := e.refs.lookup(composite); ok {
		e.writeRef(index)
		return true
	}
	e.refs.add(composite)
	return false
}

func (e *Encoder) writeList(list *List) {
	if e.shared(list) {
		return
	}
	length := len(list.Elements)
	if list.Unbounded {
		length = -1
	}
	e.writeListHeader(list.Type, length)
	for _, element := range list.Elements {
		e.writeValue(element)
	}
	if list.Unbounded {
		e.buf = append(e.buf, TagEnd)
	}
}

func (e *Encoder) writeListHeader(typ string, length int) {
	switch {
	case length < 0 && typ != "":
		e.buf = append(e.buf, TagListVariable)
		e.writeType(typ)
	case length < 0:
		e.buf = append(e.buf, TagListVariableUntyped)
	case typ != "" && length <= ListDirectMax:
		e.buf = append(e.buf, TagListDirect+byte(length))
		e.writeType(typ)
	case typ != "":
		e.buf = append(e.buf, TagListFixed)
		e.writeType(typ)
		e.buf = appendInt32(e.buf, int32(length))
	case length <= ListDirectMax:
		e.buf = append(e.buf, TagListDirectUntyped+byte(length))
	default:
		e.buf = append(e.buf, TagListFixedUntyped)
		e.buf = appendInt32(e.buf, int32(length))
	}
}

func (e *Encoder) writeMap(m *Map) {
	if e.shared(m) {
		return
	}
	e.writeMapHeader(m.Type)
	for _, entry := range m.Entries {
		e.writeValue(entry.Key)
		e.writeValue(entry.Value)
	}
	e.buf = append(e.buf, TagEnd)
}

func (e *Encoder) writeMapHeader(typ string) {
	if typ == "" {
		e.buf = append(e.buf, TagMapUntyped)
		return
	}
	e.buf = append(e.buf, TagMap)
	e.writeType(typ)
}

// writeType writes a list or map type name: the string the first time
// it appears in the pass, its type-table index afterwards.
func (e *Encoder) writeType(name string) {
	index, isNew := e.types.register(name)
	if isNew {
		e.writeString(name)
		return
	}
	e.buf = appendInt32(e.buf, int32(index))
}

func (e *Encoder) writeObject(object *Object) {
	if e.shared(object) {
		return
	}
	index, isNew := e.classes.register(object.Class)
	if isNew {
		e.writeClassDef(object.Class)
	}
	if index <= ObjectDirectMax {
		e.buf = append(e.buf, TagObjectDirect+byte(index))
	} else {
		e.buf = append(e.buf, TagObject)
		e.buf = appendInt32(e.buf, int32(index))
	}
	for _, field := range object.Fields {
		e.writeValue(field)
	}
}

func (e *Encoder) writeClassDef(def *ClassDef) {
	e.buf = append(e.buf, TagClassDef)
	e.writeString(def.Name)
	e.buf = appendInt32(e.buf, int32(len(def.Fields)))
	for _, field := range def.Fields {
		e.writeString(field)
	}
}

// writeString emits s as zero or more non-final 'R' chunks of exactly
// chunkSize characters followed by one final chunk in the most compact
// form that fits its length.
func (e *Encoder) writeString(s string) {
	remaining := utf8.RuneCountInString(s)
	for remaining > e.chunkSize {
		end := runeOffset(s, e.chunkSize)
		e.buf = append(e.buf, TagStringChunk)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(e.chunkSize))
		e.buf = append(e.buf, s[:end]...)
		s = s[end:]
		remaining -= e.chunkSize
	}

	switch {
	case remaining <= StringDirectMax:
		e.buf = append(e.buf, TagStringDirect+byte(remaining))
	case remaining <= StringShortMax:
		e.buf = append(e.buf, TagStringShort+byte(remaining>>8), byte(remaining))
	default:
		e.buf = append(e.buf, TagString)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(remaining))
	}
	e.buf = append(e.buf, s...)
}

// runeOffset returns the byte offset just past the first count runes
// of s.
func runeOffset(s string, count int) int {
	offset := 0
	for range count {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return offset
}

// writeBinary is writeString for octets: 'A' non-final chunks, then a
// final chunk in the compact, short, or 'B' form.
func (e *Encoder) writeBinary(b []byte) {
	for len(b) > e.chunkSize {
		e.buf = append(e.buf, TagBinaryChunk)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(e.chunkSize))
		e.buf = append(e.buf, b[:e.chunkSize]...)
		b = b[e.chunkSize:]
	}

	switch length := len(b); {
	case length <= BinaryDirectMax:
		e.buf = append(e.buf, TagBinaryDirect+byte(length))
	case length <= BinaryShortMax:
		e.buf = append(e.buf, TagBinaryShort+byte(length>>8), byte(length))
	default:
		e.buf = append(e.buf, TagBinary)
		e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(length))
	}
	e.buf = append(e.buf, b...)
}

// validate walks the graph once and rejects anything the encoder
// cannot represent, so that Encode never writes part of a value.
func validate(v Value) error {
	return validateValue(v, make(map[Value]bool))
}

func validateValue(v Value, seen map[Value]bool) error {
	switch value := orNull(v).(type) {
	case String:
		if !utf8.ValidString(string(value)) {
			return invalidValue(ErrInvalidValue, "string is not valid UTF-8")
		}
	case *List:
		if seen[value] {
			return nil
		}
		seen[value] = true
		if !utf8.ValidString(value.Type) {
			return invalidValue(ErrInvalidValue, "list type is not valid UTF-8")
		}
		for _, element := range value.Elements {
			if err := validateValue(element, seen); err != nil {
				return err
			}
		}
	case *Map:
		if seen[value] {
			return nil
		}
		seen[value] = true
		if !utf8.ValidString(value.Type) {
			return invalidValue(ErrInvalidValue, "map type is not valid UTF-8")
		}
		for _, entry := range value.Entries {
			if err := validateValue(entry.Key, seen); err != nil {
				return err
			}
			if err := validateValue(entry.Value, seen); err != nil {
				return err
			}
		}
	case *Object:
		if seen[value] {
			return nil
		}
		seen[value] = true
		if value.Class == nil {
			return invalidValue(ErrInvalidValue, "object has no class definition")
		}
		if len(value.Fields) != len(value.Class.Fields) {
			return &Error{
				Kind:     ErrFieldArityMismatch,
				Offset:   -1,
				Detail:   "object of class " + value.Class.Name,
				Expected: len(value.Class.Fields),
				Actual:   len(value.Fields),
			}
		}
		if !utf8.ValidString(value.Class.Name) {
			return invalidValue(ErrInvalidValue, "class name is not valid UTF-8")
		}
		for _, field := range value.Class.Fields {
			if !utf8.ValidString(field) {
				return invalidValue(ErrInvalidValue, "field name of class %s is not valid UTF-8", value.Class.Name)
			}
		}
		for _, field := range value.Fields {
			if err := validateValue(field, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
