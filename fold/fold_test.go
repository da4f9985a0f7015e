package fold

import (
	"context"
	"testing"
	"time"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/idmesh/didcore/canon"
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/internal/errkind"
	"github.com/idmesh/didcore/keys"
	"github.com/idmesh/didcore/protocol"
)

const testVersion = "1"

func testConfig() protocol.Config {
	return protocol.Config{Version: testVersion, ValidFrom: time.Unix(0, 0)}
}

// signedSigner bundles a generated Ed25519 key pair with the signer record
// its public key produces, so scenario tests can both sign and declare.
type signedSigner struct {
	priv   *keys.Ed25519PrivateKey
	record SignerRecord
}

func newSignedSigner(t *testing.T) signedSigner {
	t.Helper()
	priv, err := keys.GenerateEd25519()
	require.NoError(t, err)
	id, err := cid.Create(cid.KindSigner, cid.CodecEd25519, priv.Public().Bytes())
	require.NoError(t, err)
	return signedSigner{priv: priv, record: SignerRecord{ID: id, PublicKey: priv.Public().Bytes()}}
}

func buildReceipt(t *testing.T, body Body, signers ...signedSigner) Receipt {
	t.Helper()
	payload, err := canon.Marshal(body)
	require.NoError(t, err)
	id, err := cid.Create(cid.KindEvent, cid.CodecCBOR, payload)
	require.NoError(t, err)

	proofs := make([]Proof, 0, len(signers))
	for _, s := range signers {
		sig, err := s.priv.Sign(payload)
		require.NoError(t, err)
		proofs = append(proofs, Proof{KeyID: s.record.ID, CreatedAt: "2025-01-01T00:00:00Z", Signature: sig})
	}
	return Receipt{ID: id, Version: testVersion, CreatedAt: "2025-01-01T00:00:00Z", Payload: payload, Proofs: proofs}
}

func inceptionState(t *testing.T) (*State, signedSigner) {
	t.Helper()
	s1 := newSignedSigner(t)
	body := Body{Kind: KindInception, Inception: &Inception{
		Timestamp:     1735689600,
		Threshold:     1,
		NextThreshold: 1,
		Signers:       []SignerRecord{s1.record},
		NextSigners:   []cid.CID{s1.record.ID},
	}}
	receipt := buildReceipt(t, body, s1)
	state, err := VerifyInception(context.Background(), Deps{Config: testConfig()}, receipt)
	require.NoError(t, err)
	return state, s1
}

// S1
func TestInceptionAccept(t *testing.T) {
	state, s1 := inceptionState(t)
	require.Equal(t, uint32(1), state.Threshold)
	require.Len(t, state.CurrentSigners, 1)
	require.True(t, state.CurrentSigners[0].Equal(s1.record.ID))

	payload, err := canon.Marshal(Body{Kind: KindInception, Inception: &Inception{
		Timestamp: 1735689600, Threshold: 1, NextThreshold: 1,
		Signers: []SignerRecord{s1.record}, NextSigners: []cid.CID{s1.record.ID},
	}})
	require.NoError(t, err)
	wantID, err := cid.Create(cid.KindID, cid.CodecCBOR, payload)
	require.NoError(t, err)
	require.True(t, state.ID.Equal(wantID))
}

// S2
func TestInceptionRejectedWrongHashAlgorithm(t *testing.T) {
	s1 := newSignedSigner(t)
	body := Body{Kind: KindInception, Inception: &Inception{
		Timestamp: 1735689600, Threshold: 1, NextThreshold: 1,
		Signers: []SignerRecord{s1.record}, NextSigners: []cid.CID{s1.record.ID},
	}}
	payload, err := canon.Marshal(body)
	require.NoError(t, err)

	sum, err := mh.Sum(payload, mh.SHA2_512, -1)
	require.NoError(t, err)
	inner := gocid.NewCidV1(cid.CodecCBOR, sum)
	text, err := inner.StringOfBase(multibase.Base32)
	require.NoError(t, err)
	badID, err := cid.Parse("/idp2p/event/" + text)
	require.NoError(t, err)

	sig, err := s1.priv.Sign(payload)
	require.NoError(t, err)
	receipt := Receipt{
		ID: badID, Version: testVersion, CreatedAt: "2025-01-01T00:00:00Z", Payload: payload,
		Proofs: []Proof{{KeyID: s1.record.ID, CreatedAt: "2025-01-01T00:00:00Z", Signature: sig}},
	}

	_, err = VerifyInception(context.Background(), Deps{Config: testConfig()}, receipt)
	require.True(t, errkind.Is(err, errkind.UnsupportedHashAlgorithm))
}

// S3
func TestInteractionAddAndRevokeClaim(t *testing.T) {
	state, s1 := inceptionState(t)
	deps := Deps{Config: testConfig()}

	addBody := Body{Kind: KindInteraction, Interaction: &Interaction{
		Previous:  state.EventID,
		Timestamp: 1735689700,
		NewClaims: []ClaimInit{{Key: "email", ID: "primary", Payload: []byte("user@example.com")}},
	}}
	addReceipt := buildReceipt(t, addBody, s1)
	next, err := VerifyEvent(context.Background(), deps, state, addReceipt)
	require.NoError(t, err)
	idx := next.claimByKey("email")
	require.NotEqual(t, -1, idx)
	require.Len(t, next.Claims[idx].Values, 1)
	require.Nil(t, next.Claims[idx].Values[0].ValidUntil)

	revokeBody := Body{Kind: KindInteraction, Interaction: &Interaction{
		Previous:      next.EventID,
		Timestamp:     1735689800,
		RevokedClaims: []ClaimRef{{Key: "email", ID: "primary"}},
	}}
	revokeReceipt := buildReceipt(t, revokeBody, s1)
	final, err := VerifyEvent(context.Background(), deps, next, revokeReceipt)
	require.NoError(t, err)
	idx = final.claimByKey("email")
	require.NotNil(t, final.Claims[idx].Values[0].ValidUntil)
}

// S4
func TestRotationHonorsPrecommitment(t *testing.T) {
	state, s1 := inceptionState(t)
	deps := Deps{Config: testConfig()}

	body := Body{Kind: KindRotation, Rotation: &Rotation{
		Previous:        state.EventID,
		Timestamp:       1735689700,
		Threshold:       1,
		NextThreshold:   1,
		RevealedSigners: []SignerRecord{s1.record},
		NextSigners:     []cid.CID{s1.record.ID},
	}}
	receipt := buildReceipt(t, body, s1)
	next, err := VerifyEvent(context.Background(), deps, state, receipt)
	require.NoError(t, err)
	require.Equal(t, uint32(1), next.Threshold)
	require.Len(t, next.NextSigners, 1)
	require.True(t, next.NextSigners[0].Equal(s1.record.ID))
}

// S5
func TestRotationRejectsRevealOutsideNextSigners(t *testing.T) {
	state, _ := inceptionState(t)
	deps := Deps{Config: testConfig()}
	s2 := newSignedSigner(t)

	body := Body{Kind: KindRotation, Rotation: &Rotation{
		Previous:        state.EventID,
		Timestamp:       1735689700,
		Threshold:       1,
		NextThreshold:   1,
		RevealedSigners: []SignerRecord{s2.record},
		NextSigners:     []cid.CID{s2.record.ID},
	}}
	receipt := buildReceipt(t, body, s2)
	_, err := VerifyEvent(context.Background(), deps, state, receipt)
	require.True(t, errkind.Is(err, errkind.ThresholdNotMatch))
}

// S6
func TestMigrationSetsNextIDAndTerminates(t *testing.T) {
	state, s1 := inceptionState(t)
	deps := Deps{Config: testConfig()}

	nextID, err := cid.Create(cid.KindID, cid.CodecCBOR, []byte("successor identity payload"))
	require.NoError(t, err)

	body := Body{Kind: KindMigration, Migration: &Migration{
		Previous:        state.EventID,
		Timestamp:       1735689700,
		RevealedSigners: []SignerRecord{s1.record},
		NextID:          nextID,
	}}
	receipt := buildReceipt(t, body, s1)
	next, err := VerifyEvent(context.Background(), deps, state, receipt)
	require.NoError(t, err)
	require.NotNil(t, next.NextID)
	require.True(t, next.NextID.Equal(nextID))

	afterBody := Body{Kind: KindInteraction, Interaction: &Interaction{Previous: next.EventID, Timestamp: 1735689800}}
	afterReceipt := buildReceipt(t, afterBody, s1)
	_, err = VerifyEvent(context.Background(), deps, next, afterReceipt)
	require.True(t, errkind.Is(err, errkind.IdentityTerminated))
}

// S7
func TestPreviousMismatch(t *testing.T) {
	state, s1 := inceptionState(t)
	deps := Deps{Config: testConfig()}

	firstBody := Body{Kind: KindInteraction, Interaction: &Interaction{Previous: state.EventID, Timestamp: 1735689700}}
	firstReceipt := buildReceipt(t, firstBody, s1)
	next, err := VerifyEvent(context.Background(), deps, state, firstReceipt)
	require.NoError(t, err)

	bogus, err := cid.Create(cid.KindEvent, cid.CodecCBOR, []byte("not the real previous"))
	require.NoError(t, err)
	secondBody := Body{Kind: KindInteraction, Interaction: &Interaction{Previous: bogus, Timestamp: 1735689800}}
	secondReceipt := buildReceipt(t, secondBody, s1)
	_, err = VerifyEvent(context.Background(), deps, next, secondReceipt)
	require.True(t, errkind.Is(err, errkind.PreviousNotMatch))
}

func TestVerifyIsDeterministic(t *testing.T) {
	s1 := newSignedSigner(t)
	body := Body{Kind: KindInception, Inception: &Inception{
		Timestamp: 1735689600, Threshold: 1, NextThreshold: 1,
		Signers: []SignerRecord{s1.record}, NextSigners: []cid.CID{s1.record.ID},
	}}
	receipt := buildReceipt(t, body, s1)

	s1Copy, s2Copy := receipt, receipt
	st1, err1 := VerifyInception(context.Background(), Deps{Config: testConfig()}, s1Copy)
	st2, err2 := VerifyInception(context.Background(), Deps{Config: testConfig()}, s2Copy)
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, st1, st2)
}

func TestWeightedThresholdFailsClosedWithoutWeight(t *testing.T) {
	s1 := newSignedSigner(t)
	body := Body{Kind: KindInception, Inception: &Inception{
		Timestamp: 1735689600, Threshold: 1, NextThreshold: 1,
		Signers: []SignerRecord{s1.record}, NextSigners: []cid.CID{s1.record.ID},
	}}
	receipt := buildReceipt(t, body, s1)
	cfg := testConfig()
	cfg.WeightedThresholds = true
	_, err := VerifyInception(context.Background(), Deps{Config: cfg}, receipt)
	require.True(t, errkind.Is(err, errkind.InvalidSigner))
}
