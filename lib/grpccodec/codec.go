// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package grpccodec

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/bureau-foundation/hessian/lib/hessian"
)

// Name is the codec name, and the gRPC content-subtype
// ("application/grpc+hessian") messages travel under.
const Name = "hessian"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec carries Hessian values as gRPC messages. Each message is one
// independent encoding pass. The zero value uses the codec defaults
// and is the instance registered under Name.
//
// Codec is safe for concurrent use: every call builds its own encoder
// or decoder.
type Codec struct {
	EncoderOptions []hessian.EncoderOption
	DecoderOptions []hessian.DecoderOption
}

var _ encoding.Codec = Codec{}

// Name implements encoding.Codec.
func (Codec) Name() string {
	return Name
}

// Marshal encodes v. It accepts a hessian.Value, a *hessian.Value, or
// any Go value hessian.FromGo converts. A nil message encodes as null.
func (c Codec) Marshal(v any) ([]byte, error) {
	var value hessian.Value
	switch message := v.(type) {
	case nil:
		value = hessian.Null{}
	case hessian.Value:
		value = message
	case *hessian.Value:
		if message == nil {
			return nil, errors.New("grpccodec: marshal of nil *hessian.Value")
		}
		value = *message
	default:
		converted, err := hessian.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("grpccodec: converting %T: %w", v, err)
		}
		value = converted
	}
	return hessian.Marshal(value, c.EncoderOptions...)
}

// Unmarshal decodes data, which must hold exactly one value, into v.
// v must be a *hessian.Value, or a *any that receives the hessian.ToGo
// form.
func (c Codec) Unmarshal(data []byte, v any) error {
	switch target := v.(type) {
	case *hessian.Value:
		value, err := hessian.Unmarshal(data, c.DecoderOptions...)
		if err != nil {
			return err
		}
		*target = value
		return nil
	case *any:
		value, err := hessian.Unmarshal(data, c.DecoderOptions...)
		if err != nil {
			return err
		}
		native, err := hessian.ToGo(value)
		if err != nil {
			return err
		}
		*target = native
		return nil
	}
	return fmt.Errorf("grpccodec: cannot unmarshal into %T, want *hessian.Value or *any", v)
}
