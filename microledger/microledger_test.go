package microledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idmesh/didcore/canon"
	"github.com/idmesh/didcore/cid"
	"github.com/idmesh/didcore/fold"
	"github.com/idmesh/didcore/internal/errkind"
	"github.com/idmesh/didcore/keys"
	"github.com/idmesh/didcore/protocol"
)

const testVersion = "1"

func testConfig() protocol.Config {
	return protocol.Config{Version: testVersion, ValidFrom: time.Unix(0, 0)}
}

type testSigner struct {
	priv   *keys.Ed25519PrivateKey
	record fold.SignerRecord
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()
	priv, err := keys.GenerateEd25519()
	require.NoError(t, err)
	id, err := cid.Create(cid.KindSigner, cid.CodecEd25519, priv.Public().Bytes())
	require.NoError(t, err)
	return testSigner{priv: priv, record: fold.SignerRecord{ID: id, PublicKey: priv.Public().Bytes()}}
}

func encodeReceipt(t *testing.T, body fold.Body, signers ...testSigner) (fold.Receipt, []byte) {
	t.Helper()
	payload, err := canon.Marshal(body)
	require.NoError(t, err)
	id, err := cid.Create(cid.KindEvent, cid.CodecCBOR, payload)
	require.NoError(t, err)

	proofs := make([]fold.Proof, 0, len(signers))
	for _, s := range signers {
		sig, err := s.priv.Sign(payload)
		require.NoError(t, err)
		proofs = append(proofs, fold.Proof{KeyID: s.record.ID, CreatedAt: "2025-01-01T00:00:00Z", Signature: sig})
	}
	receipt := fold.Receipt{ID: id, Version: testVersion, CreatedAt: "2025-01-01T00:00:00Z", Payload: payload, Proofs: proofs}
	b, err := canon.Marshal(receipt)
	require.NoError(t, err)
	return receipt, b
}

func buildTestMicroledger(t *testing.T) Microledger {
	t.Helper()
	s1 := newTestSigner(t)
	inceptionBody := fold.Body{Kind: fold.KindInception, Inception: &fold.Inception{
		Timestamp: 1735689600, Threshold: 1, NextThreshold: 1,
		Signers: []fold.SignerRecord{s1.record}, NextSigners: []cid.CID{s1.record.ID},
	}}
	inceptionReceipt, inceptionBytes := encodeReceipt(t, inceptionBody, s1)

	interactionBody := fold.Body{Kind: fold.KindInteraction, Interaction: &fold.Interaction{
		Previous:  inceptionReceipt.ID,
		Timestamp: 1735689700,
		NewClaims: []fold.ClaimInit{{Key: "email", ID: "primary", Payload: []byte("user@example.com")}},
	}}
	_, interactionBytes := encodeReceipt(t, interactionBody, s1)

	return Microledger{Inception: inceptionBytes, Events: [][]byte{interactionBytes}}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := buildTestMicroledger(t)
	b, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(b)
	require.NoError(t, err)

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	require.Equal(t, b, reencoded)
}

func TestVerifyWiresThroughToFold(t *testing.T) {
	m := buildTestMicroledger(t)
	state, err := Verify(context.Background(), testConfig(), nil, nil, m, nil)
	require.NoError(t, err)
	require.Len(t, state.Claims, 1)
}

func TestVerifyRejectsForkedPrior(t *testing.T) {
	m := buildTestMicroledger(t)
	prior := buildTestMicroledger(t) // independent inception, different signer/id
	_, err := Verify(context.Background(), testConfig(), nil, nil, m, &prior)
	require.True(t, errkind.Is(err, errkind.InvalidPrevious))
}

func TestAppendEventDoesNotMutateOriginal(t *testing.T) {
	m := buildTestMicroledger(t)
	original := len(m.Events)

	appended := AppendEvent(m, []byte("new event bytes"))
	require.Len(t, m.Events, original)
	require.Len(t, appended.Events, original+1)
}
