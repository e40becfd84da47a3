// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode encodes with Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The run store addresses blobs by the hash
// of their encoded bytes, so the same logical record must always
// encode identically.
var cborEncMode cbor.EncMode

// cborDecMode decodes standard CBOR. Unknown fields are ignored so
// older binaries can read records written by newer ones.
var cborDecMode cbor.DecMode

func init() {
	var err error

	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		// Crucible records only ever use string map keys. When the
		// decode target is any-typed (stats maps, intent context),
		// produce map[string]any rather than the CBOR default
		// map[interface{}]interface{}, which nothing downstream can
		// consume.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes v as deterministic CBOR.
func MarshalCBOR(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data into v.
func UnmarshalCBOR(data []byte, v any) error {
	return cborDecMode.Unmarshal(data, v)
}
