// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Default decoder limits. They bound what a hostile stream can make the
// decoder allocate or recurse into; the chunk limit defaults to the
// largest length a chunk header can express.
const (
	DefaultMaxDepth  = 1000
	DefaultMaxLength = 1 << 24
)

// Decoder reads Hessian values from a source.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r      *bufio.Reader
	offset int64
	depth  int

	refs    decodeRefs
	classes classTable
	types   typeTable

	maxChunkLength int
	maxValueBytes  int
	maxDepth       int
	maxLength      int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxChunkLength rejects chunks declaring more than n characters
// or octets with ErrChunkLengthOverflow, before the payload is read.
func WithMaxChunkLength(n int) DecoderOption {
	return func(d *Decoder) { d.maxChunkLength = n }
}

// WithMaxValueBytes rejects strings and binaries whose reassembled size
// exceeds n bytes with ErrChunkLengthOverflow. Zero means no limit.
func WithMaxValueBytes(n int) DecoderOption {
	return func(d *Decoder) { d.maxValueBytes = n }
}

// WithMaxDepth rejects composites nested more than n deep with
// ErrDepthExceeded.
func WithMaxDepth(n int) DecoderOption {
	return func(d *Decoder) { d.maxDepth = n }
}

// WithMaxLength bounds declared list lengths and class field counts.
func WithMaxLength(n int) DecoderOption {
	return func(d *Decoder) { d.maxLength = n }
}

// NewDecoder returns a Decoder reading from r. The decoder buffers
// reads; when r is already a *bufio.Reader it is used directly.
func NewDecoder(r io.Reader, options ...DecoderOption) *Decoder {
	buffered, ok := r.(*bufio.Reader)
	if !ok {
		buffered = bufio.NewReader(r)
	}
	d := &Decoder{
		r:              buffered,
		maxChunkLength: MaxChunkLength,
		maxDepth:       DefaultMaxDepth,
		maxLength:      DefaultMaxLength,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Unmarshal decodes exactly one value from data as an independent
// pass. Empty input is ErrTruncatedStream; bytes left over after the
// value are ErrMalformed.
func Unmarshal(data []byte, options ...DecoderOption) (Value, error) {
	decoder := NewDecoder(bytes.NewReader(data), options...)
	value, err := decoder.Decode()
	if errors.Is(err, io.EOF) {
		return nil, &Error{Kind: ErrTruncatedStream, Offset: 0, Detail: "empty input"}
	}
	if err != nil {
		return nil, err
	}
	if decoder.offset != int64(len(data)) {
		return nil, &Error{
			Kind:   ErrMalformed,
			Offset: decoder.offset,
			Detail: "trailing bytes after value",
			Actual: len(data) - int(decoder.offset),
		}
	}
	return value, nil
}

// Decode reads one value as an independent pass: the tables are
// cleared before and after. It returns io.EOF, unwrapped, when the
// source is exhausted before the first byte of the value; any other
// end of input is ErrTruncatedStream.
func (d *Decoder) Decode() (Value, error) {
	d.Reset()
	defer d.Reset()
	return d.ReadValue()
}

// ReadValue reads one value within the current pass. Class definition
// records preceding the value are consumed and registered. On error
// the returned value is nil; a value is never handed back partially
// filled, and the tables are rolled back to where they stood before
// the call, so no later reference can reach a half-read composite.
// Like Decode, it returns io.EOF when no byte of the value was
// available.
func (d *Decoder) ReadValue() (Value, error) {
	if err := d.atValueStart(); err != nil {
		return nil, err
	}
	refs, classes, types := len(d.refs.entries), len(d.classes.defs), len(d.types.names)
	d.depth = 0
	value, err := d.readValue()
	if err != nil {
		d.refs.truncate(refs)
		d.classes.truncate(classes)
		d.types.truncate(types)
		return nil, err
	}
	return value, nil
}

// ReadRaw reads n bytes verbatim, for framing layers that put headers
// around values. It returns io.EOF when the source is exhausted before
// the first byte.
func (d *Decoder) ReadRaw(n int) ([]byte, error) {
	if err := d.atValueStart(); err != nil {
		return nil, err
	}
	return d.readFull(n, "reading frame header")
}

// Reset ends the current pass, clearing the reference table, class
// registry, and type table. Buffered input is kept.
func (d *Decoder) Reset() {
	d.refs.reset()
	d.classes.reset()
	d.types.reset()
	d.depth = 0
}

// Offset returns the number of bytes consumed from the source.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// atValueStart distinguishes a clean end of input from truncation.
func (d *Decoder) atValueStart() error {
	if _, err := d.r.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return ioError(err, d.offset, "reading tag")
	}
	return nil
}

func (d *Decoder) readByte(detail string) (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, ioError(err, d.offset, detail)
	}
	d.offset++
	return b, nil
}

func (d *Decoder) peekByte(detail string) (byte, error) {
	peeked, err := d.r.Peek(1)
	if err != nil {
		return 0, ioError(err, d.offset, detail)
	}
	return peeked[0], nil
}

func (d *Decoder) readFull(n int, detail string) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(d.r, buf)
	d.offset += int64(read)
	if err != nil {
		return nil, ioError(err, d.offset, detail)
	}
	return buf, nil
}

// appendFull reads n bytes onto dst.
func (d *Decoder) appendFull(dst []byte, n int, detail string) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, n)...)
	read, err := io.ReadFull(d.r, dst[start:])
	d.offset += int64(read)
	if err != nil {
		return nil, ioError(err, d.offset, detail)
	}
	return dst, nil
}

func (d *Decoder) unexpected(tag byte, detail string) error {
	return &Error{Kind: ErrUnexpectedTag, Offset: d.offset - 1, Tag: tag, HasTag: true, Detail: detail}
}

// readValue reads a tag and the value it introduces, consuming any
// class definitions in front of it.
func (d *Decoder) readValue() (Value, error) {
	for {
		tag, err := d.readByte("reading tag")
		if err != nil {
			return nil, err
		}
		if tag == TagClassDef {
			if err := d.readClassDef(); err != nil {
				return nil, err
			}
			continue
		}
		return d.readTagged(tag)
	}
}

// readTagged dispatches on a tag byte. Every byte is handled or is
// ErrUnexpectedTag; nothing is skipped.
func (d *Decoder) readTagged(tag byte) (Value, error) {
	switch {
	case isIntTag(tag):
		v, err := d.readIntBody(tag)
		if err != nil {
			return nil, err
		}
		return Int32(v), nil

	case isLongTag(tag):
		return d.readLongBody(tag)

	case isStringTag(tag):
		s, err := d.readStringBody(tag)
		if err != nil {
			return nil, err
		}
		return String(s), nil

	case isBinaryTag(tag):
		return d.readBinaryBody(tag)

	case tag >= TagObjectDirect && tag <= TagObjectDirect+ObjectDirectMax:
		return d.readObject(int(tag - TagObjectDirect))

	case tag >= TagListDirect && tag <= TagListDirectUntyped+ListDirectMax:
		return d.readList(tag)
	}

	switch tag {
	case TagNull:
		return Null{}, nil
	case TagTrue:
		return Bool(true), nil
	case TagFalse:
		return Bool(false), nil

	case TagDoubleZero:
		return Float64(0), nil
	case TagDoubleOne:
		return Float64(1), nil
	case TagDoubleByte:
		b, err := d.readByte("reading byte double")
		if err != nil {
			return nil, err
		}
		return Float64(int8(b)), nil
	case TagDoubleShort:
		buf, err := d.readFull(2, "reading short double")
		if err != nil {
			return nil, err
		}
		return Float64(int16(binary.BigEndian.Uint16(buf))), nil
	case TagDoubleMill:
		buf, err := d.readFull(4, "reading mill double")
		if err != nil {
			return nil, err
		}
		return Float64(0.001 * float64(int32(binary.BigEndian.Uint32(buf)))), nil
	case TagDouble:
		buf, err := d.readFull(8, "reading double")
		if err != nil {
			return nil, err
		}
		return Float64(math.Float64frombits(binary.BigEndian.Uint64(buf))), nil

	case TagDate:
		buf, err := d.readFull(8, "reading date")
		if err != nil {
			return nil, err
		}
		return Date(int64(binary.BigEndian.Uint64(buf))), nil
	case TagDateMinute:
		buf, err := d.readFull(4, "reading minute date")
		if err != nil {
			return nil, err
		}
		return Date(int64(int32(binary.BigEndian.Uint32(buf))) * 60000), nil

	case TagListVariable, TagListFixed, TagListVariableUntyped, TagListFixedUntyped:
		return d.readList(tag)

	case TagMap, TagMapUntyped:
		return d.readMap(tag)

	case TagObject:
		index, err := d.readInt("reading object class index")
		if err != nil {
			return nil, err
		}
		return d.readObject(int(index))

	case TagRef:
		return d.readRef()
	}

	return nil, d.unexpected(tag, "no value starts with this byte")
}

func isIntTag(tag byte) bool {
	return (tag >= 0x80 && tag <= 0xd7) || tag == TagInt
}

func isLongTag(tag byte) bool {
	return tag >= 0xd8 || (tag >= 0x38 && tag <= 0x3f) || tag == TagLongInt || tag == TagLong
}

func isStringTag(tag byte) bool {
	return tag <= 0x1f || (tag >= 0x30 && tag <= 0x33) || tag == TagString || tag == TagStringChunk
}

func isBinaryTag(tag byte) bool {
	return (tag >= 0x20 && tag <= 0x2f) || (tag >= 0x34 && tag <= 0x37) || tag == TagBinary || tag == TagBinaryChunk
}

// readIntBody decodes the int tiers. The caller has checked isIntTag.
func (d *Decoder) readIntBody(tag byte) (int32, error) {
	switch {
	case tag == TagInt:
		buf, err := d.readFull(4, "reading int")
		if err != nil {
			return 0, err
		}
		return int32(binary.BigEndian.Uint32(buf)), nil
	case tag >= 0x80 && tag <= 0xbf:
		return int32(tag) - int32(TagIntZero), nil
	case tag >= 0xc0 && tag <= 0xcf:
		b, err := d.readByte("reading byte int")
		if err != nil {
			return 0, err
		}
		return (int32(tag)-int32(TagIntByteZero))<<8 + int32(b), nil
	case tag >= 0xd0 && tag <= 0xd7:
		buf, err := d.readFull(2, "reading short int")
		if err != nil {
			return 0, err
		}
		return (int32(tag)-int32(TagIntShortZero))<<16 + int32(binary.BigEndian.Uint16(buf)), nil
	}
	return 0, d.unexpected(tag, "reading int")
}

// readInt reads an int in a structural position: a length, a class or
// type index, a field count, or a reference.
func (d *Decoder) readInt(detail string) (int32, error) {
	tag, err := d.readByte(detail)
	if err != nil {
		return 0, err
	}
	if !isIntTag(tag) {
		return 0, d.unexpected(tag, detail)
	}
	return d.readIntBody(tag)
}

// readLongBody decodes the long tiers. The caller has checked isLongTag.
func (d *Decoder) readLongBody(tag byte) (Value, error) {
	switch {
	case tag >= 0xd8 && tag <= 0xef:
		return Int64(int64(tag) - int64(TagLongZero)), nil
	case tag >= 0xf0:
		b, err := d.readByte("reading byte long")
		if err != nil {
			return nil, err
		}
		return Int64((int64(tag)-int64(TagLongByteZero))<<8 + int64(b)), nil
	case tag >= 0x38 && tag <= 0x3f:
		buf, err := d.readFull(2, "reading short long")
		if err != nil {
			return nil, err
		}
		return Int64((int64(tag)-int64(TagLongShortZero))<<16 + int64(binary.BigEndian.Uint16(buf))), nil
	case tag == TagLongInt:
		buf, err := d.readFull(4, "reading int long")
		if err != nil {
			return nil, err
		}
		return Int64(int32(binary.BigEndian.Uint32(buf))), nil
	}
	buf, err := d.readFull(8, "reading long")
	if err != nil {
		return nil, err
	}
	return Int64(int64(binary.BigEndian.Uint64(buf))), nil
}

// readString reads a string in a structural position: a class name, a
// field name, or a type name.
func (d *Decoder) readString(detail string) (string, error) {
	tag, err := d.readByte(detail)
	if err != nil {
		return "", err
	}
	if !isStringTag(tag) {
		return "", d.unexpected(tag, detail)
	}
	return d.readStringBody(tag)
}

// readType reads a list or map type: a string, registered in the type
// table, or an int index into it.
func (d *Decoder) readType() (string, error) {
	tag, err := d.readByte("reading type")
	if err != nil {
		return "", err
	}
	switch {
	case isStringTag(tag):
		name, err := d.readStringBody(tag)
		if err != nil {
			return "", err
		}
		d.types.add(name)
		return name, nil
	case isIntTag(tag):
		tagOffset := d.offset - 1
		index, err := d.readIntBody(tag)
		if err != nil {
			return "", err
		}
		name, ok := d.types.get(int(index))
		if !ok {
			return "", &Error{
				Kind:     ErrTypeIndexOutOfRange,
				Offset:   tagOffset,
				Detail:   "type reference",
				Expected: len(d.types.names),
				Actual:   int(index),
			}
		}
		return name, nil
	}
	return "", d.unexpected(tag, "expected type name or type index")
}

// readLength reads a declared element or field count and applies the
// length limit.
func (d *Decoder) readLength(detail string) (int, error) {
	tagOffset := d.offset
	length, err := d.readInt(detail)
	if err != nil {
		return 0, err
	}
	if length < 0 {
		return 0, &Error{Kind: ErrMalformed, Offset: tagOffset, Detail: detail + ": negative length", Actual: int(length)}
	}
	if int(length) > d.maxLength {
		return 0, &Error{Kind: ErrMalformed, Offset: tagOffset, Detail: detail + ": length above limit", Expected: d.maxLength, Actual: int(length)}
	}
	return int(length), nil
}

// enter and leave bound recursion into composites.
func (d *Decoder) enter() error {
	d.depth++
	if d.depth > d.maxDepth {
		return &Error{Kind: ErrDepthExceeded, Offset: d.offset - 1, Expected: d.maxDepth, Actual: d.depth}
	}
	return nil
}

func (d *Decoder) leave() {
	d.depth--
}

func (d *Decoder) readList(tag byte) (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	list := &List{}
	length := -1
	var err error
	switch {
	case tag == TagListVariable:
		list.Type, err = d.readType()
	case tag == TagListVariableUntyped:
	case tag == TagListFixed:
		if list.Type, err = d.readType(); err == nil {
			length, err = d.readLength("reading list length")
		}
	case tag == TagListFixedUntyped:
		length, err = d.readLength("reading list length")
	case tag >= TagListDirectUntyped:
		length = int(tag - TagListDirectUntyped)
	default:
		length = int(tag - TagListDirect)
		list.Type, err = d.readType()
	}
	if err != nil {
		return nil, err
	}

	d.refs.add(list)

	if length < 0 {
		list.Unbounded = true
		var elements []Value
		for {
			next, err := d.peekByte("reading list element")
			if err != nil {
				return nil, err
			}
			if next == TagEnd {
				d.readByte("reading end marker")
				break
			}
			element, err := d.readValue()
			if err != nil {
				return nil, err
			}
			elements = append(elements, element)
		}
		list.Elements = elements
		return list, nil
	}

	elements := make([]Value, 0, min(length, 1024))
	for range length {
		element, err := d.readValue()
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}
	list.Elements = elements
	return list, nil
}

func (d *Decoder) readMap(tag byte) (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	m := &Map{}
	if tag == TagMap {
		typ, err := d.readType()
		if err != nil {
			return nil, err
		}
		m.Type = typ
	}

	d.refs.add(m)

	var entries []MapEntry
	for {
		next, err := d.peekByte("reading map key")
		if err != nil {
			return nil, err
		}
		if next == TagEnd {
			d.readByte("reading end marker")
			break
		}
		key, err := d.readValue()
		if err != nil {
			return nil, err
		}
		value, err := d.readValue()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key, Value: value})
	}
	m.Entries = entries
	return m, nil
}

func (d *Decoder) readClassDef() error {
	name, err := d.readString("reading class name")
	if err != nil {
		return err
	}
	count, err := d.readLength("reading class field count")
	if err != nil {
		return err
	}
	fields := make([]string, 0, min(count, 1024))
	for range count {
		field, err := d.readString("reading class field name")
		if err != nil {
			return err
		}
		fields = append(fields, field)
	}
	d.classes.add(&ClassDef{Name: name, Fields: fields})
	return nil
}

func (d *Decoder) readObject(index int) (Value, error) {
	tagOffset := d.offset - 1
	def, ok := d.classes.get(index)
	if !ok {
		return nil, &Error{
			Kind:     ErrTypeIndexOutOfRange,
			Offset:   tagOffset,
			Detail:   "object class index",
			Expected: len(d.classes.defs),
			Actual:   index,
		}
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	object := &Object{Class: def}
	d.refs.add(object)

	fields := make([]Value, len(def.Fields))
	for index := range fields {
		field, err := d.readValue()
		if err != nil {
			return nil, err
		}
		fields[index] = field
	}
	object.Fields = fields
	return object, nil
}

func (d *Decoder) readRef() (Value, error) {
	tagOffset := d.offset - 1
	index, err := d.readInt("reading reference index")
	if err != nil {
		return nil, err
	}
	value, ok := d.refs.get(int(index))
	if !ok {
		return nil, &Error{
			Kind:     ErrRefIndexOutOfRange,
			Offset:   tagOffset,
			Expected: len(d.refs.entries),
			Actual:   int(index),
		}
	}
	return value, nil
}
