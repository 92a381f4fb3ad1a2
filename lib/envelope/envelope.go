// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/hessian/lib/hessian"
)

// Envelope header bytes.
const (
	Magic byte = 'H'
	Major byte = 0x02
	Minor byte = 0x00

	KindCall  byte = 'C'
	KindReply byte = 'R'
	KindFault byte = 'F'
)

// Standard fault codes.
const (
	CodeNoSuchMethod = "NoSuchMethodException"
	CodeProtocol     = "ProtocolException"
	CodeService      = "ServiceException"
)

// MaxArguments bounds the argument count a call may declare.
const MaxArguments = 1 << 16

// ErrMalformed reports an envelope whose header or framing values do
// not match the protocol. Codec failures inside an envelope are
// returned as *hessian.Error instead.
var ErrMalformed = errors.New("envelope: malformed")

// Call is a decoded call envelope.
type Call struct {
	Method    string
	Arguments []hessian.Value
}

// Fault is a remote failure. It implements error so a client can
// return it directly from a call.
type Fault struct {
	Code    string
	Message string

	// Detail is optional structured context; nil when absent.
	Detail hessian.Value
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %s: %s", f.Code, f.Message)
}

// Faultf builds a Fault with a formatted message.
func Faultf(code, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WriteCall writes a call envelope and flushes it.
func WriteCall(encoder *hessian.Encoder, method string, arguments ...hessian.Value) error {
	return write(encoder, KindCall, func() error {
		if err := encoder.WriteValue(hessian.String(method)); err != nil {
			return err
		}
		if err := encoder.WriteValue(hessian.Int32(len(arguments))); err != nil {
			return err
		}
		for _, argument := range arguments {
			if err := encoder.WriteValue(argument); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteReply writes a reply envelope carrying value and flushes it.
func WriteReply(encoder *hessian.Encoder, value hessian.Value) error {
	return write(encoder, KindReply, func() error {
		return encoder.WriteValue(value)
	})
}

// WriteFault writes a fault envelope and flushes it.
func WriteFault(encoder *hessian.Encoder, fault *Fault) error {
	return write(encoder, KindFault, func() error {
		return encoder.WriteValue(fault.toMap())
	})
}

// write frames body in one pass. On failure the pending bytes are
// discarded, so nothing of a rejected envelope reaches the sink.
func write(encoder *hessian.Encoder, kind byte, body func() error) error {
	encoder.Reset()
	defer encoder.Reset()
	encoder.WriteRaw(Magic, Major, Minor, kind)
	if err := body(); err != nil {
		return err
	}
	return encoder.Flush()
}

// ReadCall reads one call envelope. It returns io.EOF unwrapped when the
// source ends cleanly before the envelope starts.
func ReadCall(decoder *hessian.Decoder) (*Call, error) {
	decoder.Reset()
	defer decoder.Reset()

	kind, err := readHeader(decoder)
	if err != nil {
		return nil, err
	}
	if kind != KindCall {
		return nil, fmt.Errorf("%w: expected call, got kind 0x%02x", ErrMalformed, kind)
	}

	method, err := readValue(decoder, "reading method")
	if err != nil {
		return nil, err
	}
	name, ok := method.(hessian.String)
	if !ok {
		return nil, fmt.Errorf("%w: method is a %s, not a string", ErrMalformed, method.Kind())
	}

	count, err := readValue(decoder, "reading argument count")
	if err != nil {
		return nil, err
	}
	argc, ok := count.(hessian.Int32)
	if !ok || argc < 0 || argc > MaxArguments {
		return nil, fmt.Errorf("%w: invalid argument count %v", ErrMalformed, count)
	}

	call := &Call{Method: string(name), Arguments: make([]hessian.Value, 0, min(int(argc), 64))}
	for index := range int(argc) {
		argument, err := readValue(decoder, fmt.Sprintf("reading argument %d of %s", index, name))
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, argument)
	}
	return call, nil
}

// ReadResponse reads one reply or fault envelope. A fault is returned
// as a *Fault error. Like ReadCall, a clean end of input is io.EOF.
func ReadResponse(decoder *hessian.Decoder) (hessian.Value, error) {
	decoder.Reset()
	defer decoder.Reset()

	kind, err := readHeader(decoder)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindReply:
		return readValue(decoder, "reading reply")
	case KindFault:
		value, err := readValue(decoder, "reading fault")
		if err != nil {
			return nil, err
		}
		fault, err := faultFromValue(value)
		if err != nil {
			return nil, err
		}
		return nil, fault
	}
	return nil, fmt.Errorf("%w: expected reply or fault, got kind 0x%02x", ErrMalformed, kind)
}

// readValue reads one value of an envelope body. The header has been
// read, so running out of input here is truncation, not a clean end.
func readValue(decoder *hessian.Decoder, what string) (hessian.Value, error) {
	value, err := decoder.ReadValue()
	if errors.Is(err, io.EOF) {
		err = &hessian.Error{Kind: hessian.ErrTruncatedStream, Offset: decoder.Offset()}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return value, nil
}

func readHeader(decoder *hessian.Decoder) (byte, error) {
	header, err := decoder.ReadRaw(4)
	if err != nil {
		return 0, err
	}
	if header[0] != Magic || header[1] != Major || header[2] != Minor {
		return 0, fmt.Errorf("%w: header % x is not Hessian %d.%d", ErrMalformed, header[:3], Major, Minor)
	}
	return header[3], nil
}

func (f *Fault) toMap() *hessian.Map {
	m := &hessian.Map{}
	m.Put(hessian.String("code"), hessian.String(f.Code))
	m.Put(hessian.String("message"), hessian.String(f.Message))
	if f.Detail != nil {
		m.Put(hessian.String("detail"), f.Detail)
	}
	return m
}

func faultFromValue(value hessian.Value) (*Fault, error) {
	m, ok := value.(*hessian.Map)
	if !ok {
		return nil, fmt.Errorf("%w: fault body is a %s, not a map", ErrMalformed, value.Kind())
	}
	fault := &Fault{}
	if code, found := m.Get(hessian.String("code")); found {
		text, ok := code.(hessian.String)
		if !ok {
			return nil, fmt.Errorf("%w: fault code is a %s", ErrMalformed, code.Kind())
		}
		fault.Code = string(text)
	}
	if message, found := m.Get(hessian.String("message")); found {
		if text, ok := message.(hessian.String); ok {
			fault.Message = string(text)
		}
	}
	if detail, found := m.Get(hessian.String("detail")); found {
		fault.Detail = detail
	}
	if fault.Code == "" {
		return nil, fmt.Errorf("%w: fault without a code", ErrMalformed)
	}
	return fault, nil
}
