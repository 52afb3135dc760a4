// Package admin implements administrative one-shot operations: the
// reindex job of spec.md section 4.8, which re-embeds every capability in
// the relational store and upserts it into the vector index.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sage-x-project/agent-registry/internal/embed"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
	"github.com/sage-x-project/agent-registry/logger"
)

// Reindexer re-embeds and re-upserts every capability row.
type Reindexer struct {
	pg       *postgres.Store
	vec      *qdrantstore.Store
	embedder *embed.Embedder
	log      *logger.Logger
}

// NewReindexer constructs the admin reindex job.
func NewReindexer(pg *postgres.Store, vec *qdrantstore.Store, embedder *embed.Embedder, log *logger.Logger) *Reindexer {
	return &Reindexer{pg: pg, vec: vec, embedder: embedder, log: log}
}

// Run walks every capability row in creation order, embedding and
// upserting each. It is not transactional: a failure mid-way leaves the
// index partially updated, corrected by re-running the job, per spec.md
// section 4.8.
func (r *Reindexer) Run(ctx context.Context) (int, error) {
	count := 0
	err := r.pg.IterateAllCapabilities(ctx, func(c postgres.Capability) error {
		input := strings.TrimSpace(strings.Join([]string{
			c.CapabilityID, c.Description, schemaOrEmpty(c.OutputSchema), strings.Join(c.Tags, " "),
		}, " "))
		vector := r.embedder.Embed(ctx, input)

		err := r.vec.UpsertPoint(ctx, qdrantstore.Point{
			PointID:      uuid.NewString(),
			Vector:       vector,
			AgentDID:     c.AgentDID,
			CapabilityID: c.CapabilityID,
			Description:  c.Description,
			Tags:         c.Tags,
		})
		if err != nil {
			r.log.Error(fmt.Sprintf("reindex: upsert failed for %s/%s", c.AgentDID, c.CapabilityID), err)
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("reindex: %w", err)
	}
	return count, nil
}

func schemaOrEmpty(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}
