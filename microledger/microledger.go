// Package microledger supplements spec.md's wire-level contract: it names
// the single canonical-CBOR-encoded value a collaborator actually stores or
// transmits for one identity's history, and exposes Verify as the module's
// one public entry point wiring C1 through C5 together.
package microledger

import (
	"context"

	"github.com/idmesh/didcore/canon"
	"github.com/idmesh/didcore/delegation"
	"github.com/idmesh/didcore/fold"
	"github.com/idmesh/didcore/internal/errkind"
	"github.com/idmesh/didcore/keys"
	"github.com/idmesh/didcore/protocol"
	"github.com/idmesh/didcore/verifier"
)

// Microledger is the canonical-CBOR-encoded wire form of one identity's
// complete history: the inception receipt's canonical bytes, followed by
// every subsequent event receipt's canonical bytes, in append order.
type Microledger struct {
	Inception []byte   `cbor:"inception"`
	Events    [][]byte `cbor:"events"`
}

// Encode renders m to its canonical CBOR wire form.
func Encode(m Microledger) ([]byte, error) {
	b, err := canon.Marshal(m)
	if err != nil {
		return nil, errkind.Wrap(errkind.EncodeError, "encoding microledger", err)
	}
	return b, nil
}

// Decode parses the canonical CBOR wire form produced by Encode. It does
// not itself verify the ledger; call Verify for that.
func Decode(b []byte) (Microledger, error) {
	var m Microledger
	if err := canon.Unmarshal(b, &m); err != nil {
		return Microledger{}, errkind.Wrap(errkind.DecodeError, "decoding microledger", err)
	}
	return m, nil
}

// Verify is the module's single public entry point: it decodes m's inception
// and event receipts, folds them under cfg via C1-C4, and, when prior is
// non-nil, enforces that prior is a verified, byte-equal-prefix history of m
// (C5's InvalidPrevious check). host and tracker are threaded through to the
// fold engine for external-proof verification and Winternitz reuse tracking,
// respectively; either may be nil if the ledger never exercises them.
func Verify(ctx context.Context, cfg protocol.Config, host delegation.Host, tracker keys.ConsumedTracker, m Microledger, prior *Microledger) (*fold.State, error) {
	ledger := verifier.Ledger{Inception: m.Inception, Events: m.Events}

	var priorLedger *verifier.Ledger
	if prior != nil {
		priorLedger = &verifier.Ledger{Inception: prior.Inception, Events: prior.Events}
	}

	return verifier.Verify(ctx, cfg, host, tracker, ledger, priorLedger)
}

// AppendEvent returns a copy of m with eventReceiptBytes appended as its
// newest event. m is not mutated.
func AppendEvent(m Microledger, eventReceiptBytes []byte) Microledger {
	events := make([][]byte, 0, len(m.Events)+1)
	events = append(events, m.Events...)
	events = append(events, eventReceiptBytes)
	return Microledger{Inception: m.Inception, Events: events}
}
