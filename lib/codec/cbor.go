// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/lsmp/lib/secret"
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2), so
// the same value always produces the same payload bytes.
var encMode cbor.EncMode

// decMode rejects duplicate map keys and caps nesting. Unknown struct
// fields are ignored so peers can add fields.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Decoding into any yields map[string]any rather than the CBOR
		// default of map[any]any.
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 32,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MarshalToBuffer encodes v into secure memory. The intermediate heap
// encoding is zeroed before MarshalToBuffer returns.
func MarshalToBuffer(v any) (*secret.Buffer, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, err
	}
	buffer, err := secret.NewFromBytes(data)
	if err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("codec: moving encoding into secure memory: %w", err)
	}
	return buffer, nil
}

// UnmarshalBuffer decodes the CBOR held in buffer into v. Byte-string
// and text-string fields of v are copied out of secure memory onto the
// heap; decode secrets into types that hold them in secure containers.
func UnmarshalBuffer(buffer *secret.Buffer, v any) error {
	return decMode.Unmarshal(buffer.Bytes(), v)
}
