package canon

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Zeta  string `cbor:"zeta"`
	Alpha int    `cbor:"alpha"`
	Mid   []byte `cbor:"mid"`
}

func TestMarshalIsKeySorted(t *testing.T) {
	b, err := Marshal(sample{Zeta: "z", Alpha: 1, Mid: []byte{1, 2, 3}})
	require.NoError(t, err)

	// Canonical CBOR orders keys by encoded length, then bytewise: mid, zeta, alpha.
	require.Less(t, bytes.Index(b, []byte("mid")), bytes.Index(b, []byte("zeta")))
	require.Less(t, bytes.Index(b, []byte("zeta")), bytes.Index(b, []byte("alpha")))

	var again sample
	require.NoError(t, Unmarshal(b, &again))
	require.Equal(t, "z", again.Zeta)

	b2, err := Marshal(again)
	require.NoError(t, err)
	require.Equal(t, b, b2, "re-encoding a decoded value must reproduce identical bytes")
}

func TestCanonicalizeRoundTrip(t *testing.T) {
	in := sample{Zeta: "hello", Alpha: 42, Mid: []byte("payload")}
	b, err := Canonicalize(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Unmarshal(b, &out))
	require.Equal(t, in, out)

	b2, err := Canonicalize(out)
	require.NoError(t, err)
	require.Equal(t, b, b2)
}

func TestUnmarshalRejectsDuplicateKeys(t *testing.T) {
	// map{"alpha":1, "alpha":2} encoded by hand - duplicate canonical keys
	// must be rejected rather than silently taking the last value.
	dup := []byte{
		0xa2,                   // map(2)
		0x65, 'a', 'l', 'p', 'h', 'a',
		0x01,
		0x65, 'a', 'l', 'p', 'h', 'a',
		0x02,
	}
	var out map[string]int
	err := Unmarshal(dup, &out)
	require.Error(t, err)
}
