package fold

import (
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
)

func verifyRevealedSignerShape(signers []SignerRecord) error {
	for _, s := range signers {
		if err := ensureSigningCodec(s.ID); err != nil {
			return err
		}
		if err := cid.Ensure(s.ID, s.PublicKey); err != nil {
			return err
		}
	}
	return nil
}

// applyRevocation folds a terminal, non-migrating Revocation event.
func applyRevocation(deps Deps, state *State, receipt Receipt, ev *Revocation) (*State, error) {
	if !ev.Previous.Equal(state.EventID) {
		return nil, errkind.New(errkind.PreviousNotMatch, "revocation.previous does not match the current event id")
	}
	if err := verifyRevealedSignerShape(ev.RevealedSigners); err != nil {
		return nil, err
	}
	for _, s := range ev.RevealedSigners {
		if !containsCID(state.NextSigners, s.ID) {
			return nil, errkind.New(errkind.ThresholdNotMatch, "revealed signer was not a pre-committed next signer")
		}
	}
	if uint32(len(ev.RevealedSigners)) < state.NextThreshold {
		return nil, errkind.New(errkind.ThresholdNotMatch, "revealed signer count is below the pre-commitment's next_threshold")
	}

	expected := signersAsExpected(ev.RevealedSigners)
	proven, err := verifyProofs(deps.Tracker, receipt.Proofs, receipt.Payload, expected)
	if err != nil {
		return nil, err
	}
	if len(proven) != len(ev.RevealedSigners) {
		return nil, errkind.New(errkind.ThresholdNotMatch, "every revealed signer must sign a revocation")
	}

	next := state.Clone()
	timestamp := formatTimestamp(ev.Timestamp)

	next.Revoked = true
	next.RevokedAt = &timestamp
	next.NextSigners = nil

	next.EventID = receipt.ID
	next.EventTimestamp = timestamp
	return next, nil
}
