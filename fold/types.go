// Package fold implements the state folder (C4): the pure function
// (state, event) -> state | error over the typed event algebra (Inception,
// Interaction, Rotation, Revocation, Migration). Every exported entry point
// is deterministic in its inputs; the permitted side effects are the
// Host.VerifyProof call made while checking external proofs and the
// ConsumedTracker.MarkSeen call made for Winternitz proofs.
package fold

import (
	"github.com/idmesh/didcore/cid"
)

// EventKind discriminates the event body sum type. The body is encoded as
// a flat canonical CBOR map with one populated variant field; Kind says
// which one to read, so a single struct stands in for five Go types
// instead of an interface hierarchy the canonical serializer would have to
// special-case.
type EventKind string

const (
	KindInception   EventKind = "inception"
	KindInteraction EventKind = "interaction"
	KindRotation    EventKind = "rotation"
	KindRevocation  EventKind = "revocation"
	KindMigration   EventKind = "migration"
)

// SignerRecord is the spec's signer triple: (signer_id, public_key_bytes,
// weight?). Weight is only consulted when protocol.Config.WeightedThresholds
// is set; a nil Weight in weighted mode fails closed.
type SignerRecord struct {
	ID        cid.CID `cbor:"id"`
	PublicKey []byte  `cbor:"public_key"`
	Weight    *uint64 `cbor:"weight,omitempty"`
}

// DelegatorRecord names a delegator identity and the event kinds its
// external proof authorizes.
type DelegatorRecord struct {
	ID     cid.CID  `cbor:"id"`
	Scopes []string `cbor:"scopes"`
}

// ClaimInit is a claim value as introduced by Inception or an Interaction's
// new_claims.
type ClaimInit struct {
	Key     string `cbor:"key"`
	ID      string `cbor:"id"`
	Payload []byte `cbor:"payload,omitempty"`
}

// ClaimRef names an existing active claim value to revoke.
type ClaimRef struct {
	Key string `cbor:"key"`
	ID  string `cbor:"id"`
}

// Inception is the genesis event body.
type Inception struct {
	Timestamp     int64             `cbor:"timestamp"`
	PriorID       *cid.CID          `cbor:"prior_id,omitempty"`
	Threshold     uint32            `cbor:"threshold"`
	NextThreshold uint32            `cbor:"next_threshold"`
	Signers       []SignerRecord    `cbor:"signers"`
	NextSigners   []cid.CID         `cbor:"next_signers"`
	Delegators    []DelegatorRecord `cbor:"delegators,omitempty"`
	Claims        []ClaimInit       `cbor:"claims,omitempty"`
}

// Interaction carries claim issuance/revocation only; it never touches
// signers or thresholds.
type Interaction struct {
	Previous      cid.CID     `cbor:"previous"`
	Timestamp     int64       `cbor:"timestamp"`
	NewClaims     []ClaimInit `cbor:"new_claims,omitempty"`
	RevokedClaims []ClaimRef  `cbor:"revoked_claims,omitempty"`
}

// Rotation reveals the pre-committed next-signer set (or a subset of it
// plus fresh additions) and commits to a new next-signer set.
type Rotation struct {
	Previous        cid.CID        `cbor:"previous"`
	Timestamp       int64          `cbor:"timestamp"`
	Threshold       uint32         `cbor:"threshold"`
	NextThreshold   uint32         `cbor:"next_threshold"`
	RevealedSigners []SignerRecord `cbor:"revealed_signers"`
	NewSigners      []SignerRecord `cbor:"new_signers,omitempty"`
	NextSigners     []cid.CID      `cbor:"next_signers"`
}

// Revocation is a terminal, non-migrating event.
type Revocation struct {
	Previous        cid.CID        `cbor:"previous"`
	Timestamp       int64          `cbor:"timestamp"`
	RevealedSigners []SignerRecord `cbor:"revealed_signers"`
}

// Migration is a terminal event that names a successor identity.
type Migration struct {
	Previous        cid.CID        `cbor:"previous"`
	Timestamp       int64          `cbor:"timestamp"`
	RevealedSigners []SignerRecord `cbor:"revealed_signers"`
	NextID          cid.CID        `cbor:"next_id"`
}

// Body is the canonical, version-agnostic event body. Exactly one variant
// field is populated, selected by Kind; the body shape never branches on
// the receipt's Version field (§9: "the body shape does not branch on
// version in v1").
type Body struct {
	Kind        EventKind    `cbor:"kind"`
	Inception   *Inception   `cbor:"inception,omitempty"`
	Interaction *Interaction `cbor:"interaction,omitempty"`
	Rotation    *Rotation    `cbor:"rotation,omitempty"`
	Revocation  *Revocation  `cbor:"revocation,omitempty"`
	Migration   *Migration   `cbor:"migration,omitempty"`
}

// Proof is an internal signer's proof over a receipt's payload. KeyID is
// the signer_id CID itself (its payload IS the public key), per the data
// model's "the ID is the CID of the key" rule.
type Proof struct {
	KeyID     cid.CID `cbor:"key_id"`
	CreatedAt string  `cbor:"created_at"`
	Signature []byte  `cbor:"signature"`
}

// ExternalProof is a delegator-issued proof over the canonical delegation
// protected header, verified by the Host collaborator rather than locally.
type ExternalProof struct {
	DelegatorID cid.CID  `cbor:"delegator_id"`
	KeyID       [16]byte `cbor:"key_id"`
	CreatedAt   int64    `cbor:"created_at"`
	ContentID   cid.CID  `cbor:"content_id"`
	Signature   []byte   `cbor:"signature"`
}

// Receipt is the signed envelope the fold consumes: {id, version,
// created_at, payload, proofs[], external_proofs[]}.
type Receipt struct {
	ID             cid.CID         `cbor:"id"`
	Version        string          `cbor:"version"`
	CreatedAt      string          `cbor:"created_at"`
	Payload        []byte          `cbor:"payload"`
	Proofs         []Proof         `cbor:"proofs"`
	ExternalProofs []ExternalProof `cbor:"external_proofs,omitempty"`
}

// ClaimValue is one issued value under a claim key.
type ClaimValue struct {
	ID         string
	ValidFrom  string
	ValidUntil *string
	Payload    []byte
}

// Claim groups the values ever issued under one key.
type Claim struct {
	Key    string
	Values []ClaimValue
}

// StateSigner is a signer as carried in the fold accumulator: the raw
// public key plus its validity window.
type StateSigner struct {
	ID         cid.CID
	PublicKey  []byte
	Family     uint64
	Weight     *uint64
	ValidFrom  string
	ValidUntil *string
}

// State is the identity fold accumulator. It is never mutated out-of-fold;
// each VerifyInception/VerifyEvent call returns a freshly built value.
type State struct {
	ID             cid.CID
	EventID        cid.CID
	EventTimestamp string
	PriorID        *cid.CID
	NextID         *cid.CID
	Revoked        bool
	RevokedAt      *string
	Threshold      uint32
	NextThreshold  uint32
	Signers        []StateSigner
	CurrentSigners []cid.CID
	NextSigners    []cid.CID
	Claims         []Claim
}

// Clone returns a deep-enough copy of s so the fold can build the next
// state without aliasing the caller's slices.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Signers = append([]StateSigner(nil), s.Signers...)
	out.CurrentSigners = append([]cid.CID(nil), s.CurrentSigners...)
	out.NextSigners = append([]cid.CID(nil), s.NextSigners...)
	out.Claims = make([]Claim, len(s.Claims))
	for i, c := range s.Claims {
		out.Claims[i] = Claim{Key: c.Key, Values: append([]ClaimValue(nil), c.Values...)}
	}
	if s.PriorID != nil {
		id := *s.PriorID
		out.PriorID = &id
	}
	if s.NextID != nil {
		id := *s.NextID
		out.NextID = &id
	}
	if s.RevokedAt != nil {
		at := *s.RevokedAt
		out.RevokedAt = &at
	}
	return &out
}

// claimByKey returns the index of the claim with the given key, or -1.
func (s *State) claimByKey(key string) int {
	for i := range s.Claims {
		if s.Claims[i].Key == key {
			return i
		}
	}
	return -1
}

// signerIndex returns the index of the signer with the given ID, or -1.
func (s *State) signerIndex(id cid.CID) int {
	for i := range s.Signers {
		if s.Signers[i].ID.Equal(id) {
			return i
		}
	}
	return -1
}

// containsCID reports whether id appears in set.
func containsCID(set []cid.CID, id cid.CID) bool {
	for _, c := range set {
		if c.Equal(id) {
			return true
		}
	}
	return false
}
