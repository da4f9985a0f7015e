// Package keys implements the typed key and signature suite (C2): ledger
// signing keys (Ed25519, Dilithium3, Winternitz), key-agreement keys
// (X25519, Kyber768), and the SHA-256 pre-commitment digest rotation uses
// to commit to a future signer set without disclosing it.
package keys

import (
	"crypto/sha256"
	"fmt"

	"github.com/multiformats/go-varint"

	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
)

// Family identifies a signing or agreement key algorithm by its CID codec.
type Family uint64

const (
	FamilyEd25519    Family = Family(cid.CodecEd25519)
	FamilyDilithium3 Family = Family(cid.CodecDilithium3)
	FamilyWinternitz Family = Family(cid.CodecWinternitz)
	FamilyX25519     Family = Family(cid.CodecX25519)
	FamilyKyber768   Family = Family(cid.CodecKyber768)
)

func (f Family) String() string {
	switch f {
	case FamilyEd25519:
		return "ed25519"
	case FamilyDilithium3:
		return "dilithium3"
	case FamilyWinternitz:
		return "winternitz"
	case FamilyX25519:
		return "x25519"
	case FamilyKyber768:
		return "kyber768"
	default:
		return fmt.Sprintf("family(%d)", f)
	}
}

// SigningFamilies is the recognized set for signer/next-signer codec checks.
var SigningFamilies = map[Family]bool{
	FamilyEd25519:    true,
	FamilyDilithium3: true,
	FamilyWinternitz: true,
}

// PublicKey is the common surface over all signing-key families.
type PublicKey interface {
	Family() Family
	Bytes() []byte
	Verify(payload, sig []byte) error
}

// PrivateKey is the common signing surface. Winternitz implementations
// return an error from Sign on any call after the first (single-use).
type PrivateKey interface {
	Public() PublicKey
	Sign(payload []byte) ([]byte, error)
}

// MultiBytes encodes a public key as varint(family) ‖ raw-bytes.
func MultiBytes(pk PublicKey) []byte {
	prefix := varint.ToUvarint(uint64(pk.Family()))
	return append(prefix, pk.Bytes()...)
}

// ParseMultiBytes decodes the varint(family) ‖ raw-bytes wire form,
// reconstructing a typed PublicKey.
func ParseMultiBytes(b []byte) (PublicKey, error) {
	code, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, errkind.Wrap(errkind.DecodeError, "reading multi-bytes varint prefix", err)
	}
	return FromFamilyBytes(Family(code), b[n:])
}

// FromFamilyBytes reconstructs a typed PublicKey from a signing family code
// and the raw (non-prefixed) public key bytes, as used when a signer
// record's public_key_bytes is read back alongside its signer_id's codec.
func FromFamilyBytes(family Family, raw []byte) (PublicKey, error) {
	switch family {
	case FamilyEd25519:
		return NewEd25519PublicKey(raw)
	case FamilyDilithium3:
		return NewDilithium3PublicKey(raw)
	case FamilyWinternitz:
		return NewWinternitzPublicKey(raw)
	default:
		return nil, errkind.New(errkind.InvalidSigner, fmt.Sprintf("unrecognized signing family code %d", family))
	}
}

// KeyID returns the stable 16-byte identifier SHA-256(raw-bytes)[0:16].
func KeyID(pk PublicKey) [16]byte {
	sum := sha256.Sum256(pk.Bytes())
	var id [16]byte
	copy(id[:], sum[:16])
	return id
}

// Digest is a pre-commitment: a public-key digest binding a family code and
// a SHA-256 multihash of the raw public key bytes, disclosed in full only
// when the committed key is later revealed (e.g. at rotation).
type Digest struct {
	Family Family
	Sum    [32]byte
}

// ComputeDigest builds the pre-commitment digest for pk.
func ComputeDigest(pk PublicKey) Digest {
	return Digest{Family: pk.Family(), Sum: sha256.Sum256(pk.Bytes())}
}

// EnsurePublic succeeds iff SHA-256(pk.Bytes()) matches the committed digest
// and the families agree. Callers MUST compare CIDs/digests, never raw
// key bytes directly, to avoid leaking which committed slot a key fills.
func (d Digest) EnsurePublic(pk PublicKey) error {
	if pk.Family() != d.Family {
		return errkind.New(errkind.InvalidSigner, "revealed key family does not match pre-commitment")
	}
	sum := sha256.Sum256(pk.Bytes())
	if sum != d.Sum {
		return errkind.New(errkind.InvalidSignature, "revealed key does not match pre-committed digest")
	}
	return nil
}

// Bytes returns the wire form varint(family) ‖ multihash(SHA-256, pk), the
// multihash being varint(0x12) ‖ varint(32) ‖ digest.
func (d Digest) Bytes() []byte {
	out := varint.ToUvarint(uint64(d.Family))
	out = append(out, varint.ToUvarint(0x12)...)
	out = append(out, varint.ToUvarint(uint64(len(d.Sum)))...)
	return append(out, d.Sum[:]...)
}
