// Package cid implements the content-addressed identifier codec (C1):
// self-describing values that carry a kind tag, a multicodec payload tag,
// and a SHA-256 multihash of the bound payload, with a bit-exact textual
// form built on multiformats' base32 multibase encoding.
package cid

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"

	"github.com/idmesh/didcore/internal/errkind"
)

// Kind is the closed set of content-identifier roles this system uses.
type Kind string

const (
	KindID       Kind = "id"
	KindEvent    Kind = "event"
	KindSigner   Kind = "signer"
	KindMessage  Kind = "message"
	KindMediator Kind = "mediator"
	KindPeer     Kind = "peer"
)

var validKinds = map[Kind]bool{
	KindID: true, KindEvent: true, KindSigner: true,
	KindMessage: true, KindMediator: true, KindPeer: true,
}

var kindPattern = regexp.MustCompile(`^[a-z]+$`)

// Codec tags. CodecCBOR tags the canonical-CBOR payload format used for
// event/inception/microledger payloads. The signing-family codecs double
// as the codec tag for signer CIDs, whose payload IS the raw public key.
const (
	CodecCBOR       uint64 = 0x51
	CodecEd25519    uint64 = 0xed
	CodecX25519     uint64 = 0xec
	CodecDilithium3 uint64 = 0xd001
	CodecWinternitz uint64 = 0xd002
	CodecKyber768   uint64 = 0xd003
)

// CID is a typed, self-describing content identifier.
type CID struct {
	Kind    Kind
	Major   *uint32
	Minor   *uint32
	inner   gocid.Cid
}

// Prefix mirrors the textual form's leading segment.
const Prefix = "/idp2p"

var textPattern = regexp.MustCompile(`^/idp2p/([a-z]+)/(?:(\d+)/(\d+)/)?([A-Za-z2-7]+)$`)

// Create computes SHA-256 of payload, wraps it as a multihash, and emits a
// v1 CID tagged with codec, for the given kind.
func Create(kind Kind, codec uint64, payload []byte) (CID, error) {
	if !validKinds[kind] || !kindPattern.MatchString(string(kind)) {
		return CID{}, errkind.New(errkind.InvalidKind, fmt.Sprintf("unknown cid kind %q", kind))
	}
	sum, err := mh.Sum(payload, mh.SHA2_256, -1)
	if err != nil {
		return CID{}, errkind.Wrap(errkind.Internal, "hashing payload", err)
	}
	return CID{Kind: kind, inner: gocid.NewCidV1(codec, sum)}, nil
}

// Versioned attaches a major/minor version to an existing CID's textual form.
func (c CID) Versioned(major, minor uint32) CID {
	c.Major = &major
	c.Minor = &minor
	return c
}

// Codec returns the CID's multicodec payload tag.
func (c CID) Codec() uint64 { return c.inner.Type() }

// Hash returns the raw digest bytes (excluding the multihash header).
func (c CID) Hash() []byte {
	decoded, err := mh.Decode(c.inner.Hash())
	if err != nil {
		return nil
	}
	return decoded.Digest
}

// HashCode returns the multihash algorithm code (e.g. mh.SHA2_256).
func (c CID) HashCode() uint64 {
	decoded, err := mh.Decode(c.inner.Hash())
	if err != nil {
		return 0
	}
	return decoded.Code
}

// IsZero reports whether c is the zero value (no identity bound).
func (c CID) IsZero() bool { return !c.inner.Defined() }

// Bytes returns the binary CIDv1 form (version, codec, multihash), independent of kind.
func (c CID) Bytes() []byte { return c.inner.Bytes() }

// String renders the bit-exact textual form: "/idp2p/<kind>/[<major>/<minor>/]<cidv1>".
func (c CID) String() string {
	body, err := c.inner.StringOfBase(multibase.Base32)
	if err != nil {
		// Base32 is always encodable for a well-formed CID; this is unreachable
		// for values produced by Create or Parse.
		body = c.inner.String()
	}
	if c.Major != nil && c.Minor != nil {
		return fmt.Sprintf("%s/%s/%d/%d/%s", Prefix, c.Kind, *c.Major, *c.Minor, body)
	}
	return fmt.Sprintf("%s/%s/%s", Prefix, c.Kind, body)
}

// Key returns a value suitable for use as a map key representing this
// CID's identity (kind + hash), independent of any attached version.
func (c CID) Key() string {
	return string(c.Kind) + "|" + c.inner.KeyString()
}

// Equal compares two CIDs by their bound identity (kind + inner CID); the
// optional version is not part of identity.
func (c CID) Equal(o CID) bool {
	return c.Kind == o.Kind && c.inner.Equals(o.inner)
}

// Less implements the byte-lexical ordering the fork policy (§4.4) uses to
// deterministically prefer one of two conflicting envelopes.
func (c CID) Less(o CID) bool {
	return strings.Compare(string(c.inner.Bytes()), string(o.inner.Bytes())) < 0
}

// Parse accepts the grammar "/idp2p/<kind>/[<major>/<minor>/]<cidv1>".
func Parse(text string) (CID, error) {
	m := textPattern.FindStringSubmatch(text)
	if m == nil {
		return CID{}, errkind.New(errkind.InvalidIdFormat, fmt.Sprintf("malformed cid text %q", text))
	}
	kind := Kind(m[1])
	if !validKinds[kind] {
		return CID{}, errkind.New(errkind.InvalidKind, fmt.Sprintf("unknown cid kind %q", kind))
	}

	inner, err := gocid.Decode(m[4])
	if err != nil {
		return CID{}, errkind.Wrap(errkind.InvalidCid, "decoding cidv1 body", err)
	}
	if inner.Version() != 1 {
		return CID{}, errkind.New(errkind.InvalidCid, "only cidv1 is supported")
	}

	out := CID{Kind: kind, inner: inner}
	if m[2] != "" {
		major64, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return CID{}, errkind.Wrap(errkind.InvalidIdFormat, "parsing major version", err)
		}
		minor64, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			return CID{}, errkind.Wrap(errkind.InvalidIdFormat, "parsing minor version", err)
		}
		major32, minor32 := uint32(major64), uint32(minor64)
		out.Major, out.Minor = &major32, &minor32
	}
	return out, nil
}

// MarshalCBOR encodes the CID as its canonical textual string form, matching
// the "id (string CID)" wire contract (§6).
func (c CID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(c.String())
}

// MarshalJSON renders the same textual form as MarshalCBOR, for JSON-based
// inspection tooling; it is not part of the canonical hash-bound encoding.
func (c CID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalCBOR decodes a CID previously encoded by MarshalCBOR.
func (c *CID) UnmarshalCBOR(b []byte) error {
	var s string
	if err := cbor.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Ensure succeeds iff the CID's hash algorithm is SHA-256 and the bound
// digest equals SHA-256(payload).
func Ensure(c CID, payload []byte) error {
	decoded, err := mh.Decode(c.inner.Hash())
	if err != nil {
		return errkind.Wrap(errkind.InvalidCid, "decoding multihash", err)
	}
	if decoded.Code != mh.SHA2_256 {
		return errkind.New(errkind.UnsupportedHashAlgorithm, fmt.Sprintf("hash code %d is not SHA-256", decoded.Code))
	}
	sum, err := mh.Sum(payload, mh.SHA2_256, -1)
	if err != nil {
		return errkind.Wrap(errkind.Internal, "hashing payload", err)
	}
	want, err := mh.Decode(sum)
	if err != nil {
		return errkind.Wrap(errkind.Internal, "decoding computed multihash", err)
	}
	if string(decoded.Digest) != string(want.Digest) {
		return errkind.New(errkind.PayloadHashMismatch, "payload does not hash to the bound digest")
	}
	return nil
}
