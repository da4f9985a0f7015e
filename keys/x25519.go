package keys

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"github.com/idmesh/didcore/internal/errkind"
)

// X25519KeyPair implements static-Diffie-Hellman key agreement (out-of-core
// messaging use only; defined here because it shares the key-suite wire
// format with the ledger-signing families).
type X25519KeyPair struct {
	priv [32]byte
	pub  [32]byte
}

// GenerateX25519 creates a fresh X25519 static key pair.
func GenerateX25519() (*X25519KeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, errkind.Wrap(errkind.Internal, "generating x25519 private scalar", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "deriving x25519 public key", err)
	}
	var kp X25519KeyPair
	kp.priv = priv
	copy(kp.pub[:], pub)
	return &kp, nil
}

func (kp *X25519KeyPair) PublicBytes() []byte { return append([]byte(nil), kp.pub[:]...) }
func (kp *X25519KeyPair) Family() Family      { return FamilyX25519 }

// CreateShared performs an ephemeral-static X25519 exchange against the
// peer's static public key: it generates a fresh ephemeral key pair,
// derives the shared secret, and returns both the secret and the ephemeral
// public key the peer needs to reciprocate.
func CreateShared(peerPub []byte) (shared, ephemeralPub []byte, err error) {
	if len(peerPub) != 32 {
		return nil, nil, errkind.New(errkind.InvalidSigner, "x25519 public key must be 32 bytes")
	}
	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return nil, nil, errkind.Wrap(errkind.Internal, "generating ephemeral x25519 key", err)
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Internal, "deriving ephemeral x25519 public key", err)
	}
	secret, err := curve25519.X25519(ephPriv[:], peerPub)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Internal, "computing x25519 shared secret", err)
	}
	return secret, ephPub, nil
}

// ResolveShared recomputes the shared secret on the static-key side given
// the ephemeral public key the initiator produced via CreateShared.
func (kp *X25519KeyPair) ResolveShared(ephemeralPub []byte) ([]byte, error) {
	if len(ephemeralPub) != 32 {
		return nil, errkind.New(errkind.InvalidSigner, "x25519 public key must be 32 bytes")
	}
	secret, err := curve25519.X25519(kp.priv[:], ephemeralPub)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "computing x25519 shared secret", err)
	}
	return secret, nil
}
