package keys

import (
	"crypto"
	"crypto/rand"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/idmesh/didcore/internal/errkind"
)

// Dilithium3PublicKey is the post-quantum ledger-signing key family,
// grounded on circl's mode3 (Dilithium3 / NIST security level 3) package.
type Dilithium3PublicKey struct {
	pk  mode3.PublicKey
	raw []byte
}

func NewDilithium3PublicKey(raw []byte) (*Dilithium3PublicKey, error) {
	if len(raw) != mode3.PublicKeySize {
		return nil, errkind.New(errkind.InvalidSigner, "dilithium3 public key has the wrong size")
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, errkind.Wrap(errkind.InvalidSigner, "unmarshalling dilithium3 public key", err)
	}
	return &Dilithium3PublicKey{pk: pk, raw: raw}, nil
}

func (k *Dilithium3PublicKey) Family() Family { return FamilyDilithium3 }
func (k *Dilithium3PublicKey) Bytes() []byte  { return k.raw }

func (k *Dilithium3PublicKey) Verify(payload, sig []byte) error {
	if !mode3.Verify(&k.pk, payload, sig) {
		return errkind.New(errkind.InvalidSignature, "dilithium3 signature verification failed")
	}
	return nil
}

// Dilithium3PrivateKey wraps a circl mode3 private key.
type Dilithium3PrivateKey struct {
	sk  mode3.PrivateKey
	pub *Dilithium3PublicKey
}

// GenerateDilithium3 creates a fresh Dilithium3 key pair.
func GenerateDilithium3() (*Dilithium3PrivateKey, error) {
	pk, sk, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "generating dilithium3 key", err)
	}
	return &Dilithium3PrivateKey{
		sk:  *sk,
		pub: &Dilithium3PublicKey{pk: *pk, raw: pk.Bytes()},
	}, nil
}

func (k *Dilithium3PrivateKey) Public() PublicKey { return k.pub }

func (k *Dilithium3PrivateKey) Sign(payload []byte) ([]byte, error) {
	return k.sk.Sign(rand.Reader, payload, crypto.Hash(0))
}
