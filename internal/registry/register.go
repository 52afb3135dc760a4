// Package registry implements the registration pipeline (spec.md section
// 4.6): schema validation, card verification, and atomic replacement of
// an agent's relational row, capability rows, and vector-index points.
package registry

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/sage-x-project/agent-registry/internal/card"
	"github.com/sage-x-project/agent-registry/internal/embed"
	"github.com/sage-x-project/agent-registry/internal/httperr"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
	"github.com/sage-x-project/agent-registry/logger"
)

// AgentStore is the slice of postgres.Store the registration pipeline
// needs. Narrowed to an interface so Service can be exercised with a fake
// in tests, the way internal/embed.Model is faked for the embedder.
type AgentStore interface {
	UpsertAgent(ctx context.Context, fields postgres.UpsertAgentFields) error
	DeleteCapabilities(ctx context.Context, did string) error
	InsertCapability(ctx context.Context, did string, c postgres.NewCapability) error
}

// VectorStore is the slice of qdrant.Store the registration pipeline needs.
type VectorStore interface {
	DeleteByAgent(ctx context.Context, did string) error
	UpsertPoint(ctx context.Context, p qdrantstore.Point) error
}

// Service runs the registration pipeline against the two backing stores.
type Service struct {
	pg       AgentStore
	vec      VectorStore
	embedder *embed.Embedder
	log      *logger.Logger
}

// NewService constructs the registration pipeline.
func NewService(pg AgentStore, vec VectorStore, embedder *embed.Embedder, log *logger.Logger) *Service {
	return &Service{pg: pg, vec: vec, embedder: embedder, log: log}
}

// Register runs the full validate-verify-replace pipeline for req.
func (s *Service) Register(ctx context.Context, req *Request) (*Response, error) {
	normalizedEndpoint, publicKey, cardVersion, cardLineage, cardRaw, err := s.resolveCard(req)
	if err != nil {
		return nil, err
	}

	fields := postgres.UpsertAgentFields{
		DID:           req.DID,
		Name:          req.Name,
		Endpoint:      normalizedEndpoint,
		PublicKey:     publicKey,
		WalletAddress: lowercaseWallet(req.WalletAddress),
		CardVersion:   cardVersion,
		CardLineage:   cardLineage,
		CardSignature: req.CardSignature,
		CardRaw:       cardRaw,
	}

	// Step 1: upsert the agent row.
	if err := s.pg.UpsertAgent(ctx, fields); err != nil {
		return nil, httperr.Wrap(httperr.Internal, "upsert agent failed", err)
	}

	// Step 2: delete existing capability rows.
	if err := s.pg.DeleteCapabilities(ctx, req.DID); err != nil {
		return nil, httperr.Wrap(httperr.Internal, "delete capabilities failed", err)
	}

	// Step 3: delete existing vector points for this agent.
	if err := s.vec.DeleteByAgent(ctx, req.DID); err != nil {
		return nil, httperr.Wrap(httperr.Internal, "delete vector points failed", err)
	}

	// Step 4: per capability, embed, upsert the vector point, then insert
	// the relational row — in that order, so a crash mid-loop leaves an
	// orphan vector point rather than an orphan row.
	for _, c := range req.Capabilities {
		input := embeddingInput(c)
		vector := s.embedder.Embed(ctx, input)

		pointID := uuid.NewString()
		err := s.vec.UpsertPoint(ctx, qdrantstore.Point{
			PointID:      pointID,
			Vector:       vector,
			AgentDID:     req.DID,
			CapabilityID: c.CapabilityID,
			Description:  c.Description,
			Tags:         c.Tags,
		})
		if err != nil {
			return nil, httperr.Wrap(httperr.Internal, "upsert vector point failed", err)
		}

		err = s.pg.InsertCapability(ctx, req.DID, postgres.NewCapability{
			CapabilityID: c.CapabilityID,
			Description:  c.Description,
			Tags:         c.Tags,
			OutputSchema: c.OutputSchema,
		})
		if err != nil {
			return nil, httperr.Wrap(httperr.Internal, "insert capability failed", err)
		}
	}

	return &Response{OK: true, Registered: len(req.Capabilities)}, nil
}

// resolveCard runs the card-handling rules of spec.md section 4.6,
// returning the values to persist on the agent row.
func (s *Service) resolveCard(req *Request) (normalizedEndpoint string, publicKey, cardVersion *int, cardLineage *string, cardRaw json.RawMessage, err error) {
	// both present or both absent
	if (req.Card == nil) != (req.CardSignature == nil) {
		return "", nil, nil, nil, nil, httperr.BadRequestf("card and card_signature must both be present or both absent")
	}

	if req.Card == nil {
		ep := card.NormalizeEndpoint(req.Endpoint)
		if ep == nil {
			return "", nil, nil, nil, nil, httperr.BadRequestf("endpoint is required when no card is supplied")
		}
		return *ep, nil, nil, nil, nil, nil
	}

	candidate := firstNonEmptyPtr(req.Endpoint, &req.Card.Endpoint)
	normalized := card.NormalizeEndpoint(candidate)
	if normalized == nil {
		return "", nil, nil, nil, nil, httperr.BadRequestf("endpoint is required")
	}

	if req.Card.DID != req.DID {
		return "", nil, nil, nil, nil, httperr.BadRequestf("card.did does not match did")
	}

	cardEndpoint := card.NormalizeEndpointString(req.Card.Endpoint)
	if cardEndpoint != *normalized {
		return "", nil, nil, nil, nil, httperr.BadRequestf("card.endpoint does not match normalized endpoint")
	}

	model := toCardModel(req.Card)
	if !card.Verify(model, *req.CardSignature) {
		return "", nil, nil, nil, nil, httperr.New(httperr.Unauthorized, "card signature verification failed")
	}

	allowed := make(map[string]bool, len(req.Card.Capabilities))
	for _, c := range req.Card.Capabilities {
		allowed[c.ID] = true
	}
	for _, c := range req.Capabilities {
		if !allowed[c.CapabilityID] {
			return "", nil, nil, nil, nil, httperr.BadRequestf("capability %q is not declared on the card", c.CapabilityID)
		}
	}

	raw, merr := json.Marshal(req.Card)
	if merr != nil {
		return "", nil, nil, nil, nil, httperr.Wrap(httperr.Internal, "marshal card", merr)
	}

	version := req.Card.Version
	return *normalized, &req.Card.PublicKey, &version, req.Card.Lineage, json.RawMessage(raw), nil
}

func toCardModel(c *CardWire) *card.Card {
	caps := make([]card.CapabilitySpec, len(c.Capabilities))
	for i, e := range c.Capabilities {
		caps[i] = card.CapabilitySpec{
			ID:           e.ID,
			Description:  e.Description,
			InputSchema:  e.InputSchema,
			OutputSchema: e.OutputSchema,
			EmbeddingDim: e.EmbeddingDim,
		}
	}
	return &card.Card{
		DID:          c.DID,
		Endpoint:     c.Endpoint,
		PublicKey:    c.PublicKey,
		Version:      c.Version,
		Lineage:      c.Lineage,
		Capabilities: caps,
		Metadata:     c.Metadata,
	}
}

// lowercaseWallet normalizes an 0x-prefixed wallet address to lowercase
// hex before it's persisted, per spec.md section 3's data model ("stored
// lowercased 40-hex with 0x prefix"). The validator already enforces the
// shape; this only normalizes case.
func lowercaseWallet(addr *string) *string {
	if addr == nil {
		return nil
	}
	lower := strings.ToLower(*addr)
	return &lower
}

func firstNonEmptyPtr(a *string, b *string) *string {
	if a != nil && *a != "" {
		return a
	}
	return b
}

// embeddingInput builds the concatenation the registration pipeline
// embeds for each capability, per spec.md section 4.6.
func embeddingInput(c CapabilityInput) string {
	schema := ""
	if len(c.OutputSchema) > 0 {
		schema = string(c.OutputSchema)
	}
	parts := []string{c.CapabilityID, c.Description, schema, strings.Join(c.Tags, " ")}
	return strings.TrimSpace(strings.Join(parts, " "))
}
