// Package canon provides the canonical binary encoding every hash- and
// signature-stable structure in this module is built on: deterministic
// CBOR with sorted map keys, shortest-form integers, and definite-length
// containers. Any field renaming, reordering, or presence toggle on a
// canon-encoded type is a protocol change.
package canon

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	once    sync.Once
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func encOptions() cbor.EncOptions {
	return cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		ShortestFloat: cbor.ShortestFloat16,
		NaNConvert:    cbor.NaNConvertReject,
		InfConvert:    cbor.InfConvertReject,
		IndefLength:   cbor.IndefLengthForbidden,
		BigIntConvert: cbor.BigIntConvertShortest,
	}
}

func decOptions() cbor.DecOptions {
	return cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
}

func ensureModes() {
	once.Do(func() {
		var err error
		encMode, err = encOptions().EncMode()
		if err != nil {
			panic(err)
		}
		decMode, err = decOptions().DecMode()
		if err != nil {
			panic(err)
		}
	})
}

// Marshal encodes v using the module's canonical CBOR mode.
func Marshal(v any) ([]byte, error) {
	ensureModes()
	return encMode.Marshal(v)
}

// Unmarshal decodes canonical CBOR bytes into v.
func Unmarshal(b []byte, v any) error {
	ensureModes()
	return decMode.Unmarshal(b, v)
}

// Canonicalize returns v's canonical encoding (the same bytes Marshal
// produces); it does not decode them again. It is the basis of the module's
// encode(decode(x)) == x conformance fixture, whose test performs the decode.
func Canonicalize(v any) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
