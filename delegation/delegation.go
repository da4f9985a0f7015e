// Package delegation builds the canonical "delegation protected header"
// that external proofs are verified against. Spec fixes the header's
// fields but leaves its encoding to the implementer; we encode it as a
// COSE protected header (a canonical CBOR integer-labeled map), reusing
// the teacher's header-label-registry idiom (massifs/cose's
// HeaderLabelDID/HeaderLabelCWTClaims pattern) rather than inventing a
// bespoke format.
package delegation

import (
	"github.com/veraison/go-cose"

	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
)

// Header label registry, extending go-cose's standard labels with the
// fields this protocol's delegation header needs.
const (
	HeaderLabelPurpose   int64 = -60001
	HeaderLabelEventID   int64 = -60002
	HeaderLabelContentID int64 = -60003
	HeaderLabelVersion   int64 = -60004
	HeaderLabelCreatedAt int64 = -60005
)

// PurposeDelegation is the only defined value of HeaderLabelPurpose today.
const PurposeDelegation = "delegation"

// Header mirrors the spec's delegation-protected-header fields:
// {content_id, created_at (unix-seconds), id, key_id, purpose, version}.
type Header struct {
	ID        cid.CID
	ContentID cid.CID
	KeyID     [16]byte
	CreatedAt int64
	Version   string
}

// BuildProtectedHeader assembles the canonical protected-header bytes an
// external proof is verified against, via a cose.ProtectedHeader so the
// canonical CBOR integer-key ordering rules come from a battle-tested COSE
// implementation rather than a hand-rolled sort.
func BuildProtectedHeader(h Header) ([]byte, error) {
	ph := cose.ProtectedHeader{
		HeaderLabelPurpose:   PurposeDelegation,
		HeaderLabelEventID:   h.ID.String(),
		HeaderLabelContentID: h.ContentID.String(),
		HeaderLabelVersion:   h.Version,
		cose.HeaderLabelKeyID: h.KeyID[:],
		HeaderLabelCreatedAt:  h.CreatedAt,
	}
	b, err := ph.MarshalCBOR()
	if err != nil {
		return nil, errkind.Wrap(errkind.EncodeError, "encoding delegation protected header", err)
	}
	return b, nil
}

// Host is the external collaborator that resolves a delegator identity
// out-of-band and reports whether its signature over a delegation
// protected header is valid for that delegator. The core treats Host as a
// trusted oracle for external proofs only; it never resolves delegator
// identities itself.
type Host interface {
	VerifyProof(proofBytes, messageBytes []byte) (bool, error)
}
