package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/sage-x-project/agent-registry/internal/embed"
	"github.com/sage-x-project/agent-registry/internal/httperr"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
	"github.com/sage-x-project/agent-registry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgentStore and fakeVectorStore are in-memory stand-ins for
// AgentStore and VectorStore, the same style internal/embed/embed_test.go
// uses to fake the Model interface.
type fakeAgentStore struct {
	lexical      []postgres.Capability
	lexicalErr   error
	agentsByDID  map[string]*postgres.Agent
	findAgentErr error
}

func (f *fakeAgentStore) SearchCapabilitiesByKeyword(ctx context.Context, pattern string) ([]postgres.Capability, error) {
	return f.lexical, f.lexicalErr
}

func (f *fakeAgentStore) FindAgentsByDIDs(ctx context.Context, dids []string) (map[string]*postgres.Agent, error) {
	if f.findAgentErr != nil {
		return nil, f.findAgentErr
	}
	out := make(map[string]*postgres.Agent, len(dids))
	for _, d := range dids {
		if a, ok := f.agentsByDID[d]; ok {
			out[d] = a
		}
	}
	return out, nil
}

type fakeVectorStore struct {
	hits []qdrantstore.Hit
	err  error
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]qdrantstore.Hit, error) {
	return f.hits, f.err
}

func newTestService(pg *fakeAgentStore, vec *fakeVectorStore) *Service {
	return NewService(pg, vec, embed.New(nil), logger.New(), Config{
		Weights:      Weights{Sim: 0.7, Rep: 0.25, Avail: 0.2},
		HeartbeatTTL: time.Minute,
	})
}

func freshAgent(did string, reputation, availability float64) *postgres.Agent {
	now := time.Now()
	return &postgres.Agent{DID: did, Endpoint: "http://h", Reputation: reputation, AvailabilityScore: availability, LastSeen: &now}
}

func TestDiscoverDedupesVectorAndLexicalOnSameAgentCapability(t *testing.T) {
	pg := &fakeAgentStore{
		lexical:     []postgres.Capability{{AgentDID: "did:x:a", CapabilityID: "echo", Description: "echoes"}},
		agentsByDID: map[string]*postgres.Agent{"did:x:a": freshAgent("did:x:a", 0.9, 0.9)},
	}
	vec := &fakeVectorStore{hits: []qdrantstore.Hit{{AgentDID: "did:x:a", CapabilityID: "echo", Description: "echoes", Score: 0.8}}}
	svc := newTestService(pg, vec)

	hits, err := svc.Discover(context.Background(), &Request{Query: "echo"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, float64(float32(0.8)), hits[0].VectorScore, "vector hit wins over the lexical duplicate")
}

func TestDiscoverScoreIsNonIncreasing(t *testing.T) {
	pg := &fakeAgentStore{
		agentsByDID: map[string]*postgres.Agent{
			"did:x:a": freshAgent("did:x:a", 0.9, 0.9),
			"did:x:b": freshAgent("did:x:b", 0.2, 0.9),
		},
	}
	vec := &fakeVectorStore{hits: []qdrantstore.Hit{
		{AgentDID: "did:x:a", CapabilityID: "cap1", Score: 0.9},
		{AgentDID: "did:x:b", CapabilityID: "cap2", Score: 0.85},
	}}
	svc := newTestService(pg, vec)

	hits, err := svc.Discover(context.Background(), &Request{Query: "q"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestDiscoverContinuesWithLexicalOnlyWhenVectorSearchFails(t *testing.T) {
	pg := &fakeAgentStore{
		lexical:     []postgres.Capability{{AgentDID: "did:x:a", CapabilityID: "echo", Description: "echoes"}},
		agentsByDID: map[string]*postgres.Agent{"did:x:a": freshAgent("did:x:a", 0.9, 0.9)},
	}
	vec := &fakeVectorStore{err: assertErr{"qdrant is down"}}
	svc := newTestService(pg, vec)

	hits, err := svc.Discover(context.Background(), &Request{Query: "echo"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.45, hits[0].VectorScore)
}

func TestDiscoverFiltersOutStaleAgents(t *testing.T) {
	stale := time.Now().Add(-time.Hour)
	pg := &fakeAgentStore{
		agentsByDID: map[string]*postgres.Agent{
			"did:x:a": {DID: "did:x:a", Reputation: 0.9, AvailabilityScore: 0.9, LastSeen: &stale},
		},
	}
	vec := &fakeVectorStore{hits: []qdrantstore.Hit{{AgentDID: "did:x:a", CapabilityID: "echo", Score: 0.9}}}
	svc := newTestService(pg, vec)

	hits, err := svc.Discover(context.Background(), &Request{Query: "echo"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDiscoverRejectsOutOfRangeMinReputation(t *testing.T) {
	svc := newTestService(&fakeAgentStore{}, &fakeVectorStore{})

	tooHigh := 1.5
	_, err := svc.Discover(context.Background(), &Request{Query: "q", MinReputation: &tooHigh})
	require.Error(t, err)
	he, ok := err.(*httperr.Error)
	require.True(t, ok)
	assert.Equal(t, httperr.BadRequest, he.Kind)

	tooLow := -0.1
	_, err = svc.Discover(context.Background(), &Request{Query: "q", MinReputation: &tooLow})
	require.Error(t, err)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
