// Package health implements the liveness probe (spec.md section 4.8):
// ping both backing stores and report ok/not-ok.
package health

import (
	"context"

	"github.com/sage-x-project/agent-registry/internal/store/postgres"
	qdrantstore "github.com/sage-x-project/agent-registry/internal/store/qdrant"
)

// Status is the /health response body.
type Status struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Checker pings both stores.
type Checker struct {
	pg  *postgres.Store
	vec *qdrantstore.Store
}

// NewChecker constructs a health Checker.
func NewChecker(pg *postgres.Store, vec *qdrantstore.Store) *Checker {
	return &Checker{pg: pg, vec: vec}
}

// Check pings the relational store then the vector index, returning the
// first failure encountered.
func (c *Checker) Check(ctx context.Context) Status {
	if err := c.pg.Ping(ctx); err != nil {
		return Status{OK: false, Error: "postgres: " + err.Error()}
	}
	if err := c.vec.Ping(ctx); err != nil {
		return Status{OK: false, Error: "qdrant: " + err.Error()}
	}
	return Status{OK: true}
}
