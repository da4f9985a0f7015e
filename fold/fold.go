package fold

import (
	"context"
	"fmt"
	"time"

	"github.com/idmesh/didcore/canon"
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/delegation"
	"github.com/idmesh/didcore/internal/errkind"
	"github.com/idmesh/didcore/keys"
	"github.com/idmesh/didcore/protocol"
)

// Deps bundles the collaborators the fold needs beyond the receipt/state
// values themselves: the protocol configuration, the external-proof Host
// oracle, and the Winternitz consumed-key tracker. None of these are
// package-level state; every call site supplies its own.
type Deps struct {
	Config  protocol.Config
	Host    delegation.Host
	Tracker keys.ConsumedTracker
}

// signingCodecs is the set of multicodec tags recognized as signing-family
// codes, used to validate signer_id and next-signer CIDs.
var signingCodecs = map[uint64]bool{
	cid.CodecEd25519:    true,
	cid.CodecDilithium3: true,
	cid.CodecWinternitz: true,
}

// VerifyInception runs the inception path of the state folder: it is pure
// w.r.t. its inputs except for the one external-proof call the Host makes
// and the ConsumedTracker.MarkSeen call for Winternitz signers.
func VerifyInception(ctx context.Context, deps Deps, receipt Receipt) (*State, error) {
	body, err := decodeEnvelope(ctx, deps.Config, receipt)
	if err != nil {
		return nil, err
	}
	if body.Kind != KindInception || body.Inception == nil {
		return nil, errkind.New(errkind.InvalidKind, "expected an inception event body")
	}
	inc := body.Inception

	if err := verifyInceptionShape(receipt, inc); err != nil {
		return nil, err
	}

	expected := signersAsExpected(inc.Signers)
	proven, err := verifyProofs(deps.Tracker, receipt.Proofs, receipt.Payload, expected)
	if err != nil {
		return nil, err
	}
	if err := meetsThreshold(deps.Config, proven, inc.Threshold); err != nil {
		return nil, err
	}

	if err := verifyExternalProofs(ctx, deps.Config, deps.Host, receipt); err != nil {
		return nil, err
	}
	if err := verifyDelegatorScopes(inc.Delegators, receipt.ExternalProofs, "inception"); err != nil {
		return nil, err
	}

	return buildInceptionState(receipt, inc)
}

// VerifyEvent folds a single subsequent event receipt onto state, returning
// the next state or a typed error. state is never mutated; a fresh value is
// always returned.
func VerifyEvent(ctx context.Context, deps Deps, state *State, receipt Receipt) (*State, error) {
	if state == nil {
		return nil, errkind.New(errkind.Internal, "verify_event called with a nil prior state")
	}
	if state.Revoked || state.NextID != nil {
		return nil, errkind.New(errkind.IdentityTerminated, "identity state is terminal; no further events verify")
	}

	body, err := decodeEnvelope(ctx, deps.Config, receipt)
	if err != nil {
		return nil, err
	}

	if err := verifyExternalProofs(ctx, deps.Config, deps.Host, receipt); err != nil {
		return nil, err
	}

	switch body.Kind {
	case KindInteraction:
		if body.Interaction == nil {
			return nil, errkind.New(errkind.InvalidKind, "interaction body missing")
		}
		return applyInteraction(deps, state, receipt, body.Interaction)
	case KindRotation:
		if body.Rotation == nil {
			return nil, errkind.New(errkind.InvalidKind, "rotation body missing")
		}
		return applyRotation(deps, state, receipt, body.Rotation)
	case KindRevocation:
		if body.Revocation == nil {
			return nil, errkind.New(errkind.InvalidKind, "revocation body missing")
		}
		return applyRevocation(deps, state, receipt, body.Revocation)
	case KindMigration:
		if body.Migration == nil {
			return nil, errkind.New(errkind.InvalidKind, "migration body missing")
		}
		return applyMigration(deps, state, receipt, body.Migration)
	case KindInception:
		return nil, errkind.New(errkind.InvalidKind, "inception event may only appear at index 0")
	default:
		return nil, errkind.New(errkind.InvalidKind, fmt.Sprintf("unrecognized event kind %q", body.Kind))
	}
}

// decodeEnvelope runs the universal checks shared by every event kind:
// version, id/hash-binding, payload decode, and the valid-from floor.
// External-proof verification (check 6) is run by the caller separately
// because it needs the decoded body only for the inception-scope check.
func decodeEnvelope(ctx context.Context, cfg protocol.Config, receipt Receipt) (Body, error) {
	if receipt.Version != cfg.Version {
		return Body{}, errkind.New(errkind.UnsupportedVersion,
			fmt.Sprintf("receipt version %q does not match protocol version %q", receipt.Version, cfg.Version))
	}
	if receipt.ID.Kind != cid.KindEvent {
		return Body{}, errkind.New(errkind.InvalidKind, "receipt id must be of kind event")
	}
	if receipt.ID.Codec() != cid.CodecCBOR {
		return Body{}, errkind.New(errkind.InvalidCid, "receipt id codec must be the canonical-cbor codec")
	}
	if err := cid.Ensure(receipt.ID, receipt.Payload); err != nil {
		return Body{}, err
	}

	var body Body
	if err := canon.Unmarshal(receipt.Payload, &body); err != nil {
		return Body{}, errkind.Wrap(errkind.DecodeError, "decoding event payload", err)
	}

	ts, err := bodyTimestamp(body)
	if err != nil {
		return Body{}, err
	}
	if time.Unix(ts, 0).UTC().Before(cfg.ValidFrom.UTC()) {
		return Body{}, errkind.New(errkind.InvalidTimestamp, "event timestamp precedes the protocol's valid-from era")
	}
	return body, nil
}

func bodyTimestamp(body Body) (int64, error) {
	switch body.Kind {
	case KindInception:
		if body.Inception == nil {
			return 0, errkind.New(errkind.DecodeError, "inception body missing")
		}
		return body.Inception.Timestamp, nil
	case KindInteraction:
		if body.Interaction == nil {
			return 0, errkind.New(errkind.DecodeError, "interaction body missing")
		}
		return body.Interaction.Timestamp, nil
	case KindRotation:
		if body.Rotation == nil {
			return 0, errkind.New(errkind.DecodeError, "rotation body missing")
		}
		return body.Rotation.Timestamp, nil
	case KindRevocation:
		if body.Revocation == nil {
			return 0, errkind.New(errkind.DecodeError, "revocation body missing")
		}
		return body.Revocation.Timestamp, nil
	case KindMigration:
		if body.Migration == nil {
			return 0, errkind.New(errkind.DecodeError, "migration body missing")
		}
		return body.Migration.Timestamp, nil
	default:
		return 0, errkind.New(errkind.InvalidKind, fmt.Sprintf("unrecognized event kind %q", body.Kind))
	}
}

// formatTimestamp normalizes a unix-seconds timestamp to RFC3339 with
// seconds precision and a trailing "Z", per §4.4's finalization rule.
func formatTimestamp(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format(time.RFC3339)
}

// expectedSigner is a candidate authorizer for a set of proofs: a signer_id
// CID paired with the raw public-key bytes it is expected to bind to.
type expectedSigner struct {
	ID        cid.CID
	PublicKey []byte
	Weight    *uint64
}

func signersAsExpected(signers []SignerRecord) []expectedSigner {
	out := make([]expectedSigner, 0, len(signers))
	for _, s := range signers {
		out = append(out, expectedSigner{ID: s.ID, PublicKey: s.PublicKey, Weight: s.Weight})
	}
	return out
}

// verifyProofs checks universal check 5 over proofs against the expected
// signer set: each proof's key_id must resolve to a member, hash-bind to
// its declared public key, and verify the canonical payload bytes. A
// Winternitz-family signer additionally consults the ConsumedTracker and
// fails closed on reuse. Returns the matched expectedSigner per proof, in
// proof order, for the caller's threshold evaluation.
func verifyProofs(tracker keys.ConsumedTracker, proofs []Proof, payload []byte, expected []expectedSigner) ([]expectedSigner, error) {
	seen := make(map[string]bool, len(proofs))
	proven := make([]expectedSigner, 0, len(proofs))

	for _, p := range proofs {
		if seen[p.KeyID.Key()] {
			return nil, errkind.New(errkind.DuplicateSigner, "more than one proof references the same signer")
		}
		seen[p.KeyID.Key()] = true

		var match *expectedSigner
		for i := range expected {
			if expected[i].ID.Equal(p.KeyID) {
				match = &expected[i]
				break
			}
		}
		if match == nil {
			return nil, errkind.New(errkind.InvalidSigner, "proof key_id is not a recognized signer")
		}
		if err := cid.Ensure(match.ID, match.PublicKey); err != nil {
			return nil, err
		}

		family := keys.Family(match.ID.Codec())
		pk, err := keys.FromFamilyBytes(family, match.PublicKey)
		if err != nil {
			return nil, err
		}

		if family == keys.FamilyWinternitz && tracker != nil {
			kid := keys.KeyID(pk)
			if tracker.Seen(kid) {
				return nil, errkind.New(errkind.InvalidSignature, "winternitz key has already been consumed")
			}
		}

		if err := pk.Verify(payload, p.Signature); err != nil {
			return nil, err
		}

		if family == keys.FamilyWinternitz && tracker != nil {
			tracker.MarkSeen(keys.KeyID(pk))
		}

		proven = append(proven, *match)
	}
	return proven, nil
}

// meetsThreshold enforces either the count or the weight-sum scheme over
// the proven signer set, per protocol.Config.WeightedThresholds.
func meetsThreshold(cfg protocol.Config, proven []expectedSigner, threshold uint32) error {
	if !cfg.WeightedThresholds {
		if uint32(len(proven)) < threshold {
			return errkind.New(errkind.ThresholdNotMatch, "proof count is below the required threshold")
		}
		return nil
	}
	var sum uint64
	for _, s := range proven {
		if s.Weight == nil {
			return errkind.New(errkind.InvalidSigner, "weighted thresholds enabled but a proving signer has no weight")
		}
		sum += *s.Weight
	}
	if sum < uint64(threshold) {
		return errkind.New(errkind.ThresholdNotMatch, "signer weight sum is below the required threshold")
	}
	return nil
}

// ensureSigningCodec requires that id's multicodec is a recognized
// signing-family code.
func ensureSigningCodec(id cid.CID) error {
	if !signingCodecs[id.Codec()] {
		return errkind.New(errkind.InvalidSigner, "signer id does not carry a recognized signing-family codec")
	}
	return nil
}

// ensureNextSigningCodec is the next-signer-set counterpart of
// ensureSigningCodec, reporting InvalidNextSigner rather than InvalidSigner.
func ensureNextSigningCodec(id cid.CID) error {
	if !signingCodecs[id.Codec()] {
		return errkind.New(errkind.InvalidNextSigner, "next signer id does not carry a recognized signing-family codec")
	}
	return nil
}

// verifyExternalProofs is universal check 6: every external proof's
// content_id must equal the event id, and the Host must accept the
// delegator's signature over the canonical delegation protected header.
func verifyExternalProofs(ctx context.Context, cfg protocol.Config, host delegation.Host, receipt Receipt) error {
	if len(receipt.ExternalProofs) == 0 {
		return nil
	}
	if host == nil {
		return errkind.New(errkind.ExternalProofFailed, "external proofs present but no host collaborator is configured")
	}
	for _, ep := range receipt.ExternalProofs {
		if !ep.ContentID.Equal(receipt.ID) {
			return errkind.New(errkind.ExternalProofFailed, "external proof content_id does not match the event id")
		}
		headerBytes, err := delegation.BuildProtectedHeader(delegation.Header{
			ID:        receipt.ID,
			ContentID: ep.ContentID,
			KeyID:     ep.KeyID,
			CreatedAt: ep.CreatedAt,
			Version:   receipt.Version,
		})
		if err != nil {
			return err
		}
		ok, err := callHostWithTimeout(ctx, cfg.ExternalProofTimeout, host, ep.Signature, headerBytes)
		if err != nil {
			return err
		}
		if !ok {
			return errkind.New(errkind.ExternalProofFailed, "host rejected the external proof")
		}
	}
	return nil
}

// verifyDelegatorScopes requires that every inception-scoped delegator has
// a matching accepted external proof (already verified by the time this
// runs). We identify "matching" by delegator_id.
func verifyDelegatorScopes(delegators []DelegatorRecord, externalProofs []ExternalProof, scope string) error {
	for _, d := range delegators {
		if !hasScope(d.Scopes, scope) {
			continue
		}
		found := false
		for _, ep := range externalProofs {
			if ep.DelegatorID.Equal(d.ID) {
				found = true
				break
			}
		}
		if !found {
			return errkind.New(errkind.ExternalProofFailed,
				fmt.Sprintf("delegator scoped to %q has no matching external proof", scope))
		}
	}
	return nil
}

func hasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type hostResult struct {
	ok  bool
	err error
}

// callHostWithTimeout makes the engine's one permitted blocking call. With
// no timeout configured it calls through directly; otherwise it races the
// call against ctx's derived deadline and reports ExternalProofTimeout.
func callHostWithTimeout(ctx context.Context, timeout time.Duration, host delegation.Host, proofBytes, messageBytes []byte) (bool, error) {
	if timeout <= 0 {
		ok, err := host.VerifyProof(proofBytes, messageBytes)
		if err != nil {
			return false, errkind.Wrap(errkind.ExternalProofFailed, "host verification failed", err)
		}
		return ok, nil
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan hostResult, 1)
	go func() {
		ok, err := host.VerifyProof(proofBytes, messageBytes)
		ch <- hostResult{ok: ok, err: err}
	}()

	select {
	case <-cctx.Done():
		return false, errkind.New(errkind.ExternalProofTimeout, "external proof verification timed out")
	case r := <-ch:
		if r.err != nil {
			return false, errkind.Wrap(errkind.ExternalProofFailed, "host verification failed", r.err)
		}
		return r.ok, nil
	}
}
