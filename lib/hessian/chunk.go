// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

import (
	"encoding/binary"
	"unicode/utf8"
)

// chunkHeader decodes the length of one string or binary chunk from its
// tag. short is the base of the two-byte compact tags; final and chunk
// are the 16-bit length tags.
func (d *Decoder) chunkHeader(tag, direct byte, directMax int, short, final, chunk byte) (length int, last bool, err error) {
	switch {
	case tag >= direct && int(tag-direct) <= directMax:
		return int(tag - direct), true, nil
	case tag >= short && tag <= short+3:
		b, err := d.readByte("reading chunk length")
		if err != nil {
			return 0, false, err
		}
		return int(tag-short)<<8 | int(b), true, nil
	case tag == final || tag == chunk:
		buf, err := d.readFull(2, "reading chunk length")
		if err != nil {
			return 0, false, err
		}
		return int(binary.BigEndian.Uint16(buf)), tag == final, nil
	}
	return 0, false, d.unexpected(tag, "expected chunk continuation")
}

// checkChunk applies the chunk and reassembled-size limits. headerOffset
// is where the chunk's tag was read.
func (d *Decoder) checkChunk(headerOffset int64, length, total int) error {
	if length > d.maxChunkLength {
		return &Error{
			Kind:     ErrChunkLengthOverflow,
			Offset:   headerOffset,
			Detail:   "chunk length",
			Expected: d.maxChunkLength,
			Actual:   length,
		}
	}
	if d.maxValueBytes > 0 && total > d.maxValueBytes {
		return &Error{
			Kind:     ErrChunkLengthOverflow,
			Offset:   headerOffset,
			Detail:   "reassembled length",
			Expected: d.maxValueBytes,
			Actual:   total,
		}
	}
	return nil
}

// readStringBody reassembles a string from its chunks. Chunk lengths
// count characters, so the byte length of each chunk is discovered one
// UTF-8 sequence at a time.
func (d *Decoder) readStringBody(tag byte) (string, error) {
	var buf []byte
	for {
		headerOffset := d.offset - 1
		length, last, err := d.chunkHeader(tag, TagStringDirect, StringDirectMax, TagStringShort, TagString, TagStringChunk)
		if err != nil {
			return "", err
		}
		if err := d.checkChunk(headerOffset, length, len(buf)+length); err != nil {
			return "", err
		}

		start := len(buf)
		for range length {
			lead, err := d.readByte("reading string chunk")
			if err != nil {
				return "", err
			}
			buf = append(buf, lead)
			if lead < utf8.RuneSelf {
				continue
			}
			size := sequenceLength(lead)
			if size == 0 {
				return "", &Error{Kind: ErrMalformed, Offset: d.offset - 1, Detail: "invalid utf-8 lead byte"}
			}
			if buf, err = d.appendFull(buf, size-1, "reading string chunk"); err != nil {
				return "", err
			}
		}
		if !utf8.Valid(buf[start:]) {
			return "", &Error{Kind: ErrMalformed, Offset: headerOffset, Detail: "string chunk is not valid utf-8"}
		}
		if err := d.checkChunk(headerOffset, 0, len(buf)); err != nil {
			return "", err
		}

		if last {
			return string(buf), nil
		}
		if tag, err = d.readByte("reading string chunk"); err != nil {
			return "", err
		}
		if !isStringTag(tag) {
			return "", d.unexpected(tag, "expected string chunk")
		}
	}
}

// sequenceLength returns the byte length of the UTF-8 sequence a
// non-ASCII lead byte starts, or zero if b cannot start one.
func sequenceLength(b byte) int {
	switch {
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	}
	return 0
}

func (d *Decoder) readBinaryBody(tag byte) (Value, error) {
	buf := []byte{}
	for {
		headerOffset := d.offset - 1
		length, last, err := d.chunkHeader(tag, TagBinaryDirect, BinaryDirectMax, TagBinaryShort, TagBinary, TagBinaryChunk)
		if err != nil {
			return nil, err
		}
		if err := d.checkChunk(headerOffset, length, len(buf)+length); err != nil {
			return nil, err
		}
		if buf, err = d.appendFull(buf, length, "reading binary chunk"); err != nil {
			return nil, err
		}

		if last {
			return Binary(buf), nil
		}
		if tag, err = d.readByte("reading binary chunk"); err != nil {
			return nil, err
		}
		if !isBinaryTag(tag) {
			return nil, d.unexpected(tag, "expected binary chunk")
		}
	}
}
