package fold

import (
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
)

// applyMigration folds a terminal, migrating Migration event: same signer
// rules as Revocation, plus a successor identity CID.
func applyMigration(deps Deps, state *State, receipt Receipt, ev *Migration) (*State, error) {
	if !ev.Previous.Equal(state.EventID) {
		return nil, errkind.New(errkind.PreviousNotMatch, "migration.previous does not match the current event id")
	}
	if ev.NextID.Kind != cid.KindID {
		return nil, errkind.New(errkind.InvalidCid, "migration next_id must be a cid of kind id")
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
		return nil, errkind.New(errkind.ThresholdNotMatch, "every revealed signer must sign a migration")
	}

	next := state.Clone()
	timestamp := formatTimestamp(ev.Timestamp)

	nextID := ev.NextID
	next.NextID = &nextID

	next.EventID = receipt.ID
	next.EventTimestamp = timestamp
	return next, nil
}
