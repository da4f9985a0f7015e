package fold

import (
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
)

func verifyRotationShape(ev *Rotation) error {
	for _, s := range ev.RevealedSigners {
		if err := ensureSigningCodec(s.ID); err != nil {
			return err
		}
		if err := cid.Ensure(s.ID, s.PublicKey); err != nil {
			return err
		}
	}
	for _, s := range ev.NewSigners {
		if err := ensureSigningCodec(s.ID); err != nil {
			return err
		}
		if err := cid.Ensure(s.ID, s.PublicKey); err != nil {
			return err
		}
	}
	for _, ns := range ev.NextSigners {
		if err := ensureNextSigningCodec(ns); err != nil {
			return err
		}
	}
	if ev.Threshold < 1 {
		return errkind.New(errkind.ThresholdNotMatch, "rotated threshold must be at least 1")
	}
	return nil
}

// applyRotation folds a Rotation event: it honors the pre-commitment over
// revealed_signers, admits new_signers, and commits to a fresh next_signers
// set, per §4.4.
func applyRotation(deps Deps, state *State, receipt Receipt, ev *Rotation) (*State, error) {
	if !ev.Previous.Equal(state.EventID) {
		return nil, errkind.New(errkind.PreviousNotMatch, "rotation.previous does not match the current event id")
	}
	if err := verifyRotationShape(ev); err != nil {
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
	if uint32(len(ev.NextSigners)) < ev.NextThreshold {
		return nil, errkind.New(errkind.NextThresholdNotMatch, "rotated next signer count is below the rotated next_threshold")
	}

	allSigners := make([]SignerRecord, 0, len(ev.RevealedSigners)+len(ev.NewSigners))
	allSigners = append(allSigners, ev.RevealedSigners...)
	allSigners = append(allSigners, ev.NewSigners...)

	expected := signersAsExpected(allSigners)
	proven, err := verifyProofs(deps.Tracker, receipt.Proofs, receipt.Payload, expected)
	if err != nil {
		return nil, err
	}
	if len(proven) != len(allSigners) {
		return nil, errkind.New(errkind.ThresholdNotMatch, "every revealed and new signer must sign a rotation")
	}
	if err := meetsThreshold(deps.Config, proven, ev.Threshold); err != nil {
		return nil, err
	}

	next := state.Clone()
	timestamp := formatTimestamp(ev.Timestamp)

	for _, id := range next.CurrentSigners {
		idx := next.signerIndex(id)
		if idx == -1 {
			continue
		}
		if next.Signers[idx].ValidUntil == nil {
			until := timestamp
			next.Signers[idx].ValidUntil = &until
		}
	}

	current := make([]cid.CID, 0, len(allSigners))
	for _, s := range allSigners {
		next.Signers = append(next.Signers, StateSigner{
			ID:        s.ID,
			PublicKey: s.PublicKey,
			Family:    s.ID.Codec(),
			Weight:    s.Weight,
			ValidFrom: timestamp,
		})
		current = append(current, s.ID)
	}
	next.CurrentSigners = current
	next.Threshold = ev.Threshold
	next.NextThreshold = ev.NextThreshold
	next.NextSigners = append([]cid.CID(nil), ev.NextSigners...)

	next.EventID = receipt.ID
	next.EventTimestamp = timestamp
	return next, nil
}
