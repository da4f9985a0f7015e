package fold

import (
	"github.com/idmesh/didcore/internal/errkind"
)

// applyInteraction folds an Interaction event: it never touches signers or
// thresholds, only claim issuance/revocation. A new claim whose id matches an
// active value under the same key is rejected with InvalidCreateKey; a
// revoked value's id may be issued again.
func applyInteraction(deps Deps, state *State, receipt Receipt, ev *Interaction) (*State, error) {
	if !ev.Previous.Equal(state.EventID) {
		return nil, errkind.New(errkind.PreviousNotMatch, "interaction.previous does not match the current event id")
	}

	expected := currentSignerSet(state)
	proven, err := verifyProofs(deps.Tracker, receipt.Proofs, receipt.Payload, expected)
	if err != nil {
		return nil, err
	}
	if err := meetsThreshold(deps.Config, proven, state.Threshold); err != nil {
		return nil, err
	}

	next := state.Clone()
	timestamp := formatTimestamp(ev.Timestamp)

	for _, nc := range ev.NewClaims {
		idx := next.claimByKey(nc.Key)
		value := ClaimValue{ID: nc.ID, ValidFrom: timestamp, Payload: nc.Payload}
		if idx == -1 {
			next.Claims = append(next.Claims, Claim{Key: nc.Key, Values: []ClaimValue{value}})
		} else {
			for _, v := range next.Claims[idx].Values {
				if v.ID == nc.ID && v.ValidUntil == nil {
					return nil, errkind.New(errkind.InvalidCreateKey, "an active claim value with this id already exists under the key")
				}
			}
			next.Claims[idx].Values = append(next.Claims[idx].Values, value)
		}
	}

	for _, rc := range ev.RevokedClaims {
		idx := next.claimByKey(rc.Key)
		if idx == -1 {
			return nil, errkind.New(errkind.ClaimNotFound, "no claim exists under the revoked key")
		}
		found := false
		for i := range next.Claims[idx].Values {
			v := &next.Claims[idx].Values[i]
			if v.ID == rc.ID && v.ValidUntil == nil {
				until := timestamp
				v.ValidUntil = &until
				found = true
				break
			}
		}
		if !found {
			return nil, errkind.New(errkind.ClaimNotFound, "no active claim value matches the revoked claim reference")
		}
	}

	next.EventID = receipt.ID
	next.EventTimestamp = timestamp
	return next, nil
}

// currentSignerSet projects state's active current-signer set into the
// expectedSigner shape verifyProofs consumes.
func currentSignerSet(state *State) []expectedSigner {
	out := make([]expectedSigner, 0, len(state.CurrentSigners))
	for _, id := range state.CurrentSigners {
		idx := state.signerIndex(id)
		if idx == -1 {
			continue
		}
		s := state.Signers[idx]
		out = append(out, expectedSigner{ID: s.ID, PublicKey: s.PublicKey, Weight: s.Weight})
	}
	return out
}
