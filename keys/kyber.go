package keys

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber768"

	"github.com/idmesh/didcore/internal/errkind"
)

var kyberScheme = kyber768.Scheme()

// Kyber768KeyPair wraps a circl Kyber768 (ML-KEM, NIST level 3) KEM key
// pair for out-of-core key-agreement use.
type Kyber768KeyPair struct {
	pk kem.PublicKey
	sk kem.PrivateKey
}

// GenerateKyber768 creates a fresh Kyber768 KEM key pair.
func GenerateKyber768() (*Kyber768KeyPair, error) {
	pk, sk, err := kyberScheme.GenerateKeyPair()
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "generating kyber768 key pair", err)
	}
	return &Kyber768KeyPair{pk: pk, sk: sk}, nil
}

func (kp *Kyber768KeyPair) PublicBytes() ([]byte, error) {
	return kp.pk.MarshalBinary()
}

func (kp *Kyber768KeyPair) Family() Family { return FamilyKyber768 }

// Encaps encapsulates a fresh shared secret against a peer's Kyber768
// public key, returning the shared secret and the ciphertext to send.
func Encaps(peerPubBytes []byte) (sharedSecret, ciphertext []byte, err error) {
	peerPub, err := kyberScheme.UnmarshalBinaryPublicKey(peerPubBytes)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.InvalidSigner, "unmarshalling kyber768 public key", err)
	}
	ct, ss, err := kyberScheme.Encapsulate(peerPub)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Internal, "kyber768 encapsulation failed", err)
	}
	return ss, ct, nil
}

// Decaps recovers the shared secret from a ciphertext produced by Encaps.
func (kp *Kyber768KeyPair) Decaps(ciphertext []byte) ([]byte, error) {
	ss, err := kyberScheme.Decapsulate(kp.sk, ciphertext)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "kyber768 decapsulation failed", err)
	}
	return ss, nil
}
