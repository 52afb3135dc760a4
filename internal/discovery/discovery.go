// Package discovery implements the hybrid vector+lexical discovery
// pipeline (spec.md section 4.7): embed, search, lexical fallback, merge,
// join, score, filter, and sort.
package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/sage-x-project/agent-registry/internal/embed"
	"github.com/sage-x-project/agent-registry/internal/httperr"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
	"github.com/sage-x-project/agent-registry/logger"
)

// defaultLexicalStandInScore is the fixed score assigned to lexical-only hits so
// they sit on the same numeric axis as cosine similarity scores. Per
// spec.md's design notes this default must remain 0.45 for behavioral
// parity even though it is exposed as a configuration knob.
const defaultLexicalStandInScore = 0.45

// Weights are the scoring coefficients of spec.md section 4.7. They are
// applied literally and need not sum to 1.
type Weights struct {
	Sim   float64
	Rep   float64
	Avail float64
}

// AgentStore is the slice of postgres.Store the discovery pipeline needs.
// Narrowed to an interface so Service can be exercised with a fake in
// tests, the way internal/embed.Model is faked for the embedder.
type AgentStore interface {
	SearchCapabilitiesByKeyword(ctx context.Context, pattern string) ([]postgres.Capability, error)
	FindAgentsByDIDs(ctx context.Context, dids []string) (map[string]*postgres.Agent, error)
}

// VectorStore is the slice of qdrant.Store the discovery pipeline needs.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, limit int) ([]qdrantstore.Hit, error)
}

// Service runs the discovery pipeline.
type Service struct {
	pg       AgentStore
	vec      VectorStore
	embedder *embed.Embedder
	log      *logger.Logger

	weights             Weights
	lexicalStandInScore float64
	heartbeatTTL        time.Duration
	minReputation       float64
}

// Config carries the tunables spec.md section 6 exposes as environment
// variables.
type Config struct {
	Weights             Weights
	LexicalStandInScore float64
	HeartbeatTTL        time.Duration
	MinReputation       float64
}

// NewService constructs the discovery pipeline.
func NewService(pg AgentStore, vec VectorStore, embedder *embed.Embedder, log *logger.Logger, cfg Config) *Service {
	standIn := cfg.LexicalStandInScore
	if standIn == 0 {
		standIn = defaultLexicalStandInScore
	}
	return &Service{
		pg:                  pg,
		vec:                 vec,
		embedder:            embedder,
		log:                 log,
		weights:             cfg.Weights,
		lexicalStandInScore: standIn,
		heartbeatTTL:        cfg.HeartbeatTTL,
		minReputation:       cfg.MinReputation,
	}
}

type mergedHit struct {
	agentDID     string
	capabilityID string
	description  string
	tags         []string
	sim          float64
}

func mergeKey(agentDID, capabilityID string) string { return agentDID + "\x00" + capabilityID }

// Discover runs the full pipeline for req and returns ranked hits.
func (s *Service) Discover(ctx context.Context, req *Request) ([]Hit, error) {
	limit := 5
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 1 || limit > 50 {
		return nil, httperr.BadRequestf("limit must be between 1 and 50")
	}

	minRep := s.minReputation
	if req.MinReputation != nil {
		if *req.MinReputation < 0 || *req.MinReputation > 1 {
			return nil, httperr.BadRequestf("minReputation must be between 0 and 1")
		}
		minRep = *req.MinReputation
	}

	merged := make([]mergedHit, 0, limit*2)
	seen := make(map[string]bool)

	vector := s.embedder.Embed(ctx, req.Query)
	vecHits, err := s.vec.Search(ctx, vector, limit)
	if err != nil {
		s.log.Warn("vector search failed, continuing with lexical-only results: " + err.Error())
		vecHits = nil
	}
	for _, h := range vecHits {
		key := mergeKey(h.AgentDID, h.CapabilityID)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, mergedHit{
			agentDID:     h.AgentDID,
			capabilityID: h.CapabilityID,
			description:  h.Description,
			tags:         h.Tags,
			sim:          float64(h.Score),
		})
	}

	lexicalHits, err := s.pg.SearchCapabilitiesByKeyword(ctx, req.Query)
	if err != nil {
		return nil, httperr.Wrap(httperr.Internal, "lexical search failed", err)
	}
	for _, c := range lexicalHits {
		key := mergeKey(c.AgentDID, c.CapabilityID)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, mergedHit{
			agentDID:     c.AgentDID,
			capabilityID: c.CapabilityID,
			description:  c.Description,
			tags:         c.Tags,
			sim:          s.lexicalStandInScore,
		})
	}

	dids := make([]string, 0, len(merged))
	didSeen := make(map[string]bool)
	for _, m := range merged {
		if !didSeen[m.agentDID] {
			didSeen[m.agentDID] = true
			dids = append(dids, m.agentDID)
		}
	}

	agents, err := s.pg.FindAgentsByDIDs(ctx, dids)
	if err != nil {
		return nil, httperr.Wrap(httperr.Internal, "join agent metadata failed", err)
	}

	now := time.Now()
	hits := make([]Hit, 0, len(merged))
	for _, m := range merged {
		agent, ok := agents[m.agentDID]

		rep := 0.0
		avail := 0.0
		var summary *AgentSummary

		if ok {
			rep = clamp01(agent.Reputation)
			avail = effectiveAvailability(agent, now, s.heartbeatTTL)
			summary = &AgentSummary{
				DID:               agent.DID,
				Name:              agent.Name,
				Endpoint:          agent.Endpoint,
				Reputation:        agent.Reputation,
				AvailabilityScore: &avail,
			}
			if agent.LastSeen != nil {
				ls := agent.LastSeen.Format(time.RFC3339)
				summary.LastSeen = &ls
			}
		}

		if avail <= 0 || rep < minRep {
			continue
		}

		score := s.weights.Sim*m.sim + s.weights.Rep*rep + s.weights.Avail*avail

		hits = append(hits, Hit{
			Score:             score,
			VectorScore:       m.sim,
			ReputationScore:   rep,
			AvailabilityScore: avail,
			AgentDID:          m.agentDID,
			CapabilityID:      m.capabilityID,
			Description:       m.description,
			Tags:              m.tags,
			Reputation:        rep,
			Agent:             summary,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// effectiveAvailability applies the staleness gate of spec.md section
// 4.7: an agent with no last_seen contributes 0 (the record's "null"
// handled as a zero score); an agent whose last_seen is older than twice
// the heartbeat TTL is forced to 0 regardless of its stored value.
func effectiveAvailability(a *postgres.Agent, now time.Time, ttl time.Duration) float64 {
	if a.LastSeen == nil {
		return 0
	}
	if now.Sub(*a.LastSeen) > 2*ttl {
		return 0
	}
	return clamp01(a.AvailabilityScore)
}
