// Package verifier implements the ledger verifier (C5): it orchestrates
// C1-C4, parsing a microledger's raw receipt bytes, verifying inception,
// then folding each subsequent event receipt in order.
package verifier

import (
	"bytes"
	"context"
	"reflect"

	"github.com/idmesh/didcore/canon"
	"github.com/idmesh/didcore/delegation"
	"github.com/idmesh/didcore/fold"
	"github.com/idmesh/didcore/internal/errkind"
	"github.com/idmesh/didcore/keys"
	"github.com/idmesh/didcore/protocol"
)

// Ledger is the borrowed view of a microledger's raw bytes the verifier
// needs: the canonical inception receipt bytes, and the canonical bytes of
// each subsequent event receipt, in order.
type Ledger struct {
	Inception []byte
	Events    [][]byte
}

// Verify decodes ledger's inception envelope, verifies it, then folds each
// subsequent event receipt in order, returning the final state or the
// first typed error encountered. If prior is non-nil, prior.Events must be
// a byte-equal prefix of ledger.Events sharing the same inception, and
// prior must independently verify to the intermediate state ledger's own
// fold reaches at that point; otherwise InvalidPrevious.
//
// The engine reads no bytes outside ledger/prior during verification,
// except the Host-mediated external-proof check threaded through ctx.
func Verify(ctx context.Context, cfg protocol.Config, host delegation.Host, tracker keys.ConsumedTracker, ledger Ledger, prior *Ledger) (*fold.State, error) {
	deps := fold.Deps{Config: cfg, Host: host, Tracker: tracker}

	finalState, intermediates, err := foldAll(ctx, deps, ledger)
	if err != nil {
		return nil, err
	}

	if prior != nil {
		if err := checkPriorPrefix(*prior, ledger); err != nil {
			return nil, err
		}
		priorState, _, err := foldAll(ctx, deps, *prior)
		if err != nil {
			return nil, errkind.Wrap(errkind.InvalidPrevious, "prior microledger failed to verify independently", err)
		}
		if !reflect.DeepEqual(priorState, intermediates[len(prior.Events)]) {
			return nil, errkind.New(errkind.InvalidPrevious,
				"prior microledger's verified state does not match the ledger's intermediate state at that point")
		}
	}

	return finalState, nil
}

func checkPriorPrefix(prior, ledger Ledger) error {
	if !bytes.Equal(prior.Inception, ledger.Inception) {
		return errkind.New(errkind.InvalidPrevious, "prior microledger has a different inception than the ledger being verified")
	}
	if len(prior.Events) > len(ledger.Events) {
		return errkind.New(errkind.InvalidPrevious, "prior microledger has more events than the ledger being verified")
	}
	for i, ev := range prior.Events {
		if !bytes.Equal(ev, ledger.Events[i]) {
			return errkind.New(errkind.InvalidPrevious, "prior microledger's events are not a byte-equal prefix")
		}
	}
	return nil
}

// foldAll decodes and folds the whole ledger, returning the final state
// plus every intermediate snapshot (index 0 is the post-inception state,
// index i+1 is the state after ledger.Events[i]).
func foldAll(ctx context.Context, deps fold.Deps, ledger Ledger) (*fold.State, []*fold.State, error) {
	inceptionReceipt, err := decodeReceipt(ledger.Inception)
	if err != nil {
		return nil, nil, err
	}
	state, err := fold.VerifyInception(ctx, deps, inceptionReceipt)
	if err != nil {
		return nil, nil, err
	}

	intermediates := make([]*fold.State, 0, len(ledger.Events)+1)
	intermediates = append(intermediates, state)

	for _, eventBytes := range ledger.Events {
		receipt, err := decodeReceipt(eventBytes)
		if err != nil {
			return nil, nil, err
		}
		state, err = fold.VerifyEvent(ctx, deps, state, receipt)
		if err != nil {
			return nil, nil, err
		}
		intermediates = append(intermediates, state)
	}

	return state, intermediates, nil
}

func decodeReceipt(b []byte) (fold.Receipt, error) {
	var r fold.Receipt
	if err := canon.Unmarshal(b, &r); err != nil {
		return fold.Receipt{}, errkind.Wrap(errkind.DecodeError, "decoding receipt envelope", err)
	}
	return r, nil
}
