package fold

import (
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
)

// verifyInceptionShape checks the inception-specific structural invariants
// of §4.4 that do not depend on proof verification outcomes.
func verifyInceptionShape(receipt Receipt, inc *Inception) error {
	if inc.Threshold < 1 {
		return errkind.New(errkind.ThresholdNotMatch, "threshold must be at least 1")
	}
	totalSigners := uint32(len(inc.Signers))
	totalSignatures := uint32(len(receipt.Proofs))
	if totalSigners < totalSignatures || totalSignatures < inc.Threshold {
		return errkind.New(errkind.ThresholdNotMatch,
			"inception requires total_signers >= total_signatures >= threshold")
	}
	if uint32(len(inc.NextSigners)) < inc.NextThreshold {
		return errkind.New(errkind.NextThresholdNotMatch, "next signer count is below next_threshold")
	}

	for _, s := range inc.Signers {
		if err := ensureSigningCodec(s.ID); err != nil {
			return err
		}
		if err := cid.Ensure(s.ID, s.PublicKey); err != nil {
			return err
		}
	}
	for _, ns := range inc.NextSigners {
		if err := ensureNextSigningCodec(ns); err != nil {
			return err
		}
	}
	return nil
}

// buildInceptionState assembles the genesis identity state once the
// inception receipt has passed all checks.
func buildInceptionState(receipt Receipt, inc *Inception) (*State, error) {
	signers := make([]StateSigner, 0, len(inc.Signers))
	current := make([]cid.CID, 0, len(inc.Signers))
	validFrom := formatTimestamp(inc.Timestamp)
	for _, s := range inc.Signers {
		signers = append(signers, StateSigner{
			ID:        s.ID,
			PublicKey: s.PublicKey,
			Family:    s.ID.Codec(),
			Weight:    s.Weight,
			ValidFrom: validFrom,
		})
		current = append(current, s.ID)
	}

	claims := make([]Claim, 0)
	for _, c := range inc.Claims {
		idx := -1
		for i := range claims {
			if claims[i].Key == c.Key {
				idx = i
				break
			}
		}
		value := ClaimValue{ID: c.ID, ValidFrom: validFrom, Payload: c.Payload}
		if idx == -1 {
			claims = append(claims, Claim{Key: c.Key, Values: []ClaimValue{value}})
		} else {
			claims[idx].Values = append(claims[idx].Values, value)
		}
	}

	identityID, err := cid.Create(cid.KindID, cid.CodecCBOR, receipt.Payload)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, "computing identity id from inception payload", err)
	}

	state := &State{
		ID:             identityID,
		EventID:        receipt.ID,
		EventTimestamp: validFrom,
		Threshold:      inc.Threshold,
		NextThreshold:  inc.NextThreshold,
		Signers:        signers,
		CurrentSigners: current,
		NextSigners:    append([]cid.CID(nil), inc.NextSigners...),
		Claims:         claims,
	}
	if inc.PriorID != nil {
		id := *inc.PriorID
		state.PriorID = &id
	}
	return state, nil
}
