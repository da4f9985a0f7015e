package cid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateParseRoundTrip(t *testing.T) {
	payload := []byte("inception payload bytes")
	c, err := Create(KindID, CodecCBOR, payload)
	require.NoError(t, err)

	text := c.String()
	require.Regexp(t, `^/idp2p/id/[A-Za-z2-7]+$`, text)

	parsed, err := Parse(text)
	require.NoError(t, err)
	require.True(t, c.Equal(parsed))
	require.NoError(t, Ensure(parsed, payload))
}

func TestVersionedTextForm(t *testing.T) {
	c, err := Create(KindEvent, CodecCBOR, []byte("evt"))
	require.NoError(t, err)
	v := c.Versioned(1, 0)
	require.Regexp(t, `^/idp2p/event/1/0/[A-Za-z2-7]+$`, v.String())
}

func TestEnsureRejectsTamperedPayload(t *testing.T) {
	c, err := Create(KindID, CodecCBOR, []byte("original"))
	require.NoError(t, err)
	require.Error(t, Ensure(c, []byte("tampered")))
}

func TestParseRejectsUnknownKind(t *testing.T) {
	c, err := Create(KindID, CodecCBOR, []byte("x"))
	require.NoError(t, err)
	body := c.String()[len("/idp2p/id/"):]
	_, err = Parse("/idp2p/bogus123/" + body)
	require.Error(t, err)
}

func TestParseRejectsMalformedGrammar(t *testing.T) {
	_, err := Parse("not-a-cid-at-all")
	require.Error(t, err)
}

func TestCIDKeyDistinguishesKind(t *testing.T) {
	a, err := Create(KindID, CodecCBOR, []byte("same"))
	require.NoError(t, err)
	b, err := Create(KindEvent, CodecCBOR, []byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a.Key(), b.Key())
}

func TestLessIsDeterministicOrdering(t *testing.T) {
	a, err := Create(KindEvent, CodecCBOR, []byte("aaa"))
	require.NoError(t, err)
	b, err := Create(KindEvent, CodecCBOR, []byte("bbb"))
	require.NoError(t, err)
	// Exactly one direction should hold, and it must be stable.
	require.NotEqual(t, a.Less(b), b.Less(a))
}

func TestCBORRoundTrip(t *testing.T) {
	c, err := Create(KindSigner, CodecEd25519, []byte("pubkeybytes"))
	require.NoError(t, err)

	b, err := c.MarshalCBOR()
	require.NoError(t, err)

	var out CID
	require.NoError(t, out.UnmarshalCBOR(b))
	require.True(t, c.Equal(out))
}
