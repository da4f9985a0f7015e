package keys

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/idmesh/didcore/internal/errkind"
)

// Ed25519PublicKey is the default ledger-signing key family.
type Ed25519PublicKey struct {
	raw ed25519.PublicKey
}

func NewEd25519PublicKey(raw []byte) (*Ed25519PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, errkind.New(errkind.InvalidSigner, "ed25519 public key must be 32 bytes")
	}
	return &Ed25519PublicKey{raw: ed25519.PublicKey(raw)}, nil
}

func (k *Ed25519PublicKey) Family() Family { return FamilyEd25519 }
func (k *Ed25519PublicKey) Bytes() []byte  { return []byte(k.raw) }

func (k *Ed25519PublicKey) Verify(payload, sig []byte) error {
	if !ed25519.Verify(k.raw, payload, sig) {
		return errkind.New(errkind.InvalidSignature, "ed25519 signature verification failed")
	}
	return nil
}

// Ed25519PrivateKey wraps a standard Ed25519 key pair.
type Ed25519PrivateKey struct {
	priv ed25519.PrivateKey
	pub  *Ed25519PublicKey
}

// GenerateEd25519 creates a fresh Ed25519 key pair.
func GenerateEd25519() (*Ed25519PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "generating ed25519 key", err)
	}
	return &Ed25519PrivateKey{priv: priv, pub: &Ed25519PublicKey{raw: pub}}, nil
}

func (k *Ed25519PrivateKey) Public() PublicKey { return k.pub }

func (k *Ed25519PrivateKey) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, payload), nil
}
