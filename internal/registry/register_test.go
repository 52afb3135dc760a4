package registry

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/sage-x-project/agent-registry/internal/card"
	"github.com/sage-x-project/agent-registry/internal/httperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func signedCardRequest(t *testing.T, did, endpoint string, capIDs []string) *Request {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	caps := make([]card.CapabilitySpec, len(capIDs))
	cardCaps := make([]CapabilityCardEntry, len(capIDs))
	for i, id := range capIDs {
		caps[i] = card.CapabilitySpec{ID: id, Description: "d"}
		cardCaps[i] = CapabilityCardEntry{ID: id, Description: "d"}
	}

	c := &card.Card{
		DID:          did,
		Endpoint:     endpoint,
		PublicKey:    base58.Encode(pub),
		Version:      1,
		Capabilities: caps,
	}
	sig, err := card.Sign(c, priv)
	require.NoError(t, err)

	reqCaps := make([]CapabilityInput, len(capIDs))
	for i, id := range capIDs {
		reqCaps[i] = CapabilityInput{CapabilityID: id, Description: "d"}
	}

	return &Request{
		DID:           did,
		Capabilities:  reqCaps,
		Card:          &CardWire{DID: did, Endpoint: endpoint, PublicKey: c.PublicKey, Version: 1, Capabilities: cardCaps},
		CardSignature: &sig,
	}
}

func TestResolveCardRejectsMismatchedDID(t *testing.T) {
	svc := &Service{}
	req := signedCardRequest(t, "did:x:a", "http://h", []string{"echo"})
	req.Card.DID = "did:x:b"

	_, _, _, _, _, err := svc.resolveCard(req)
	require.Error(t, err)
	he, ok := err.(*httperr.Error)
	require.True(t, ok)
	assert.Equal(t, httperr.BadRequest, he.Kind)
}

func TestResolveCardRejectsTamperedSignature(t *testing.T) {
	svc := &Service{}
	req := signedCardRequest(t, "did:x:a", "http://h", []string{"echo"})
	req.Capabilities[0].Description = "tampered"
	req.Card.Capabilities[0].Description = "tampered"

	_, _, _, _, _, err := svc.resolveCard(req)
	require.Error(t, err)
	he, ok := err.(*httperr.Error)
	require.True(t, ok)
	assert.Equal(t, httperr.Unauthorized, he.Kind)
}

func TestResolveCardNormalizesEndpoint(t *testing.T) {
	svc := &Service{}
	req := signedCardRequest(t, "did:x:a", "http://h/", []string{"echo"})

	endpoint, publicKey, _, _, _, err := svc.resolveCard(req)
	require.NoError(t, err)
	assert.Equal(t, "http://h", endpoint)
	assert.NotNil(t, publicKey)
}

func TestResolveCardRejectsUndeclaredCapability(t *testing.T) {
	svc := &Service{}
	req := signedCardRequest(t, "did:x:a", "http://h", []string{"echo"})
	req.Capabilities = append(req.Capabilities, CapabilityInput{CapabilityID: "not-on-card", Description: "d"})

	_, _, _, _, _, err := svc.resolveCard(req)
	require.Error(t, err)
	he, ok := err.(*httperr.Error)
	require.True(t, ok)
	assert.Equal(t, httperr.BadRequest, he.Kind)
}

func TestResolveCardlessRequiresEndpoint(t *testing.T) {
	svc := &Service{}
	req := &Request{DID: "did:x:a", Capabilities: []CapabilityInput{{CapabilityID: "echo", Description: "d"}}}

	_, _, _, _, _, err := svc.resolveCard(req)
	require.Error(t, err)
}

func TestResolveCardlessAcceptsEndpoint(t *testing.T) {
	svc := &Service{}
	req := &Request{
		DID:          "did:x:a",
		Endpoint:     strptr("http://h/"),
		Capabilities: []CapabilityInput{{CapabilityID: "echo", Description: "d"}},
	}

	endpoint, publicKey, _, _, _, err := svc.resolveCard(req)
	require.NoError(t, err)
	assert.Equal(t, "http://h", endpoint)
	assert.Nil(t, publicKey)
}

func TestEmbeddingInputConcatenation(t *testing.T) {
	input := embeddingInput(CapabilityInput{
		CapabilityID: "echo",
		Description:  "echoes input",
		Tags:         []string{"util", "text"},
	})
	assert.Equal(t, "echo echoes input  util text", input)
}
