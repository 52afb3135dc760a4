// Command reindex is the administrative one-shot companion to
// POST /admin/reindex: it re-embeds every capability row and upserts it
// into the vector index, then exits. Useful for recovering from a vector
// index wipe without going through the HTTP admission layer.
package main

import (
	"context"

	"github.com/sage-x-project/agent-registry/internal/admin"
	"github.com/sage-x-project/agent-registry/internal/config"
	"github.com/sage-x-project/agent-registry/internal/embed"
	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
	"github.com/sage-x-project/agent-registry/logger"
)

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", err)
	}

	ctx := context.Background()

	pg, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to open postgres store", err)
	}
	defer pg.Close()

	vec, err := qdrantstore.Open(ctx, cfg.QdrantURL)
	if err != nil {
		log.Fatal("failed to open qdrant store", err)
	}

	model, err := embed.NewModelFromEnv()
	if err != nil {
		log.Warn("failed to initialize embedding model, using deterministic fallback: " + err.Error())
		model = nil
	}
	embedder := embed.New(model)

	reindexer := admin.NewReindexer(pg, vec, embedder, log)
	count, err := reindexer.Run(ctx)
	if err != nil {
		log.Fatal("reindex failed", err)
	}
	log.Infof("reindex complete: %d capabilities re-embedded", count)
}
