// Package postgres implements the relational metadata store adapter
// (spec.md section 4.3) over a connection pool managed by pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the typed CRUD adapter over the agents and capabilities
// tables. It is safe for concurrent use; pgxpool.Pool already serializes
// access to a bounded set of connections.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url and runs the idempotent schema migration.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// migrate creates the schema if absent and adds every listed column with
// IF NOT EXISTS, so a second startup against an already-migrated
// database is a no-op, per spec.md section 4.3.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			did text PRIMARY KEY,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS name text`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS endpoint text NOT NULL DEFAULT ''`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS public_key text`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS wallet_address text`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS reputation double precision NOT NULL DEFAULT 0`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS availability_score double precision NOT NULL DEFAULT 0`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS last_seen timestamptz`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS card_version integer`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS card_lineage text`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS card_signature text`,
		`ALTER TABLE agents ADD COLUMN IF NOT EXISTS card_raw jsonb`,
		`CREATE INDEX IF NOT EXISTS idx_agents_wallet_address ON agents (wallet_address) WHERE wallet_address IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS capabilities (
			id bigserial PRIMARY KEY,
			agent_did text NOT NULL REFERENCES agents(did) ON DELETE CASCADE,
			capability_id text NOT NULL,
			description text NOT NULL,
			tags jsonb NOT NULL DEFAULT '[]',
			output_schema jsonb,
			price_cents integer NOT NULL DEFAULT 10,
			created_at timestamptz NOT NULL DEFAULT now(),
			UNIQUE (agent_did, capability_id)
		)`,
		`ALTER TABLE capabilities ADD COLUMN IF NOT EXISTS tags jsonb NOT NULL DEFAULT '[]'`,
		`ALTER TABLE capabilities ADD COLUMN IF NOT EXISTS output_schema jsonb`,
		`ALTER TABLE capabilities ADD COLUMN IF NOT EXISTS price_cents integer NOT NULL DEFAULT 10`,
		`CREATE INDEX IF NOT EXISTS idx_capabilities_agent_did ON capabilities (agent_did)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration statement: %w", err)
		}
	}
	return nil
}

// Ping verifies connectivity for the health probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertAgent inserts or updates the agent row keyed on DID. A nil
// WalletAddress in fields preserves whatever wallet is already stored;
// every other column is overwritten unconditionally, per spec.md section
// 4.3.
func (s *Store) UpsertAgent(ctx context.Context, fields UpsertAgentFields) error {
	rawCard := fields.CardRaw
	if rawCard == nil {
		rawCard = json.RawMessage("null")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (did, name, endpoint, public_key, wallet_address, card_version, card_lineage, card_signature, card_raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (did) DO UPDATE SET
			name = EXCLUDED.name,
			endpoint = EXCLUDED.endpoint,
			public_key = EXCLUDED.public_key,
			wallet_address = COALESCE(EXCLUDED.wallet_address, agents.wallet_address),
			card_version = EXCLUDED.card_version,
			card_lineage = EXCLUDED.card_lineage,
			card_signature = EXCLUDED.card_signature,
			card_raw = EXCLUDED.card_raw
	`, fields.DID, fields.Name, fields.Endpoint, fields.PublicKey, fields.WalletAddress,
		fields.CardVersion, fields.CardLineage, fields.CardSignature, rawCard)
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", fields.DID, err)
	}
	return nil
}

// DeleteCapabilities removes every capability row owned by did. Used as
// step 2 of the registration pipeline's atomic replacement (spec.md
// section 4.6), ahead of the vector index's own deleteByAgent.
func (s *Store) DeleteCapabilities(ctx context.Context, did string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM capabilities WHERE agent_did = $1`, did); err != nil {
		return fmt.Errorf("delete capabilities for %s: %w", did, err)
	}
	return nil
}

// InsertCapability inserts a single capability row. The registration
// pipeline calls this once per capability, after that capability's vector
// point has already been upserted, so a mid-loop crash leaves an orphan
// vector point rather than an orphan row (spec.md section 5).
func (s *Store) InsertCapability(ctx context.Context, did string, c NewCapability) error {
	tagsJSON, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags for %s: %w", c.CapabilityID, err)
	}
	outSchema := c.OutputSchema
	if outSchema == nil {
		outSchema = json.RawMessage("null")
	}
	price := c.PriceCents
	if price == 0 {
		price = 10
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO capabilities (agent_did, capability_id, description, tags, output_schema, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, did, c.CapabilityID, c.Description, tagsJSON, outSchema, price)
	if err != nil {
		return fmt.Errorf("insert capability %s for %s: %w", c.CapabilityID, did, err)
	}
	return nil
}

// InsertCapabilitiesBatch inserts many capability rows in one round trip,
// with no interleaved per-capability vector upserts. Neither the register
// pipeline nor the admin reindex job calls it.
func (s *Store) InsertCapabilitiesBatch(ctx context.Context, did string, list []NewCapability) error {
	if len(list) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range list {
		tagsJSON, err := json.Marshal(c.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", c.CapabilityID, err)
		}
		outSchema := c.OutputSchema
		if outSchema == nil {
			outSchema = json.RawMessage("null")
		}
		price := c.PriceCents
		if price == 0 {
			price = 10
		}
		batch.Queue(`
			INSERT INTO capabilities (agent_did, capability_id, description, tags, output_schema, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, did, c.CapabilityID, c.Description, tagsJSON, outSchema, price)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range list {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert capability row: %w", err)
		}
	}
	return nil
}

// FindAgentsByDIDs fetches the joined-discovery metadata for a set of
// agent DIDs in a single batched lookup.
func (s *Store) FindAgentsByDIDs(ctx context.Context, dids []string) (map[string]*Agent, error) {
	out := make(map[string]*Agent, len(dids))
	if len(dids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT did, name, endpoint, public_key, wallet_address, reputation, availability_score, last_seen, created_at
		FROM agents WHERE did = ANY($1)
	`, dids)
	if err != nil {
		return nil, fmt.Errorf("find agents by dids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.DID, &a.Name, &a.Endpoint, &a.PublicKey, &a.WalletAddress,
			&a.Reputation, &a.AvailabilityScore, &a.LastSeen, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out[a.DID] = &a
	}
	return out, rows.Err()
}

// SearchCapabilitiesByKeyword performs a case-insensitive substring match
// against both capability_id and description. The engine-side limit is
// unbounded by contract; callers cap the merged result.
func (s *Store) SearchCapabilitiesByKeyword(ctx context.Context, pattern string) ([]Capability, error) {
	like := "%" + strings.ToLower(pattern) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT id, agent_did, capability_id, description, tags, output_schema, price_cents, created_at
		FROM capabilities
		WHERE lower(capability_id) LIKE $1 OR lower(description) LIKE $1
	`, like)
	if err != nil {
		return nil, fmt.Errorf("search capabilities by keyword: %w", err)
	}
	defer rows.Close()

	var out []Capability
	for rows.Next() {
		c, err := scanCapability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateReputation sets an agent's reputation score.
func (s *Store) UpdateReputation(ctx context.Context, did string, r float64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE agents SET reputation = $1 WHERE did = $2`, r, did)
	if err != nil {
		return fmt.Errorf("update reputation for %s: %w", did, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s not found", did)
	}
	return nil
}

// UpdateAvailability sets an agent's availability score and last-seen
// timestamp.
func (s *Store) UpdateAvailability(ctx context.Context, did string, availability float64, lastSeen time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE agents SET availability_score = $1, last_seen = $2 WHERE did = $3`,
		availability, lastSeen, did)
	if err != nil {
		return fmt.Errorf("update availability for %s: %w", did, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s not found", did)
	}
	return nil
}

// GetCapabilityOutputSchema looks up a single capability's output schema
// by its agent-namespaced capability_id. Ambiguous across agents: the
// first match (by insertion order) is returned, matching the HTTP
// surface's /v1/capability/{id}/schema, which does not take an agent
// DID.
func (s *Store) GetCapabilityOutputSchema(ctx context.Context, capabilityID string) (json.RawMessage, error) {
	var schema json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT output_schema FROM capabilities WHERE capability_id = $1 ORDER BY created_at ASC LIMIT 1
	`, capabilityID).Scan(&schema)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get capability output schema for %s: %w", capabilityID, err)
	}
	return schema, nil
}

// IterateAllCapabilities streams every capability row to fn, in creation
// order, for the admin reindex job (spec.md section 4.8).
func (s *Store) IterateAllCapabilities(ctx context.Context, fn func(Capability) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, agent_did, capability_id, description, tags, output_schema, price_cents, created_at
		FROM capabilities ORDER BY created_at ASC
	`)
	if err != nil {
		return fmt.Errorf("iterate all capabilities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCapability(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanCapability(rows pgx.Rows) (Capability, error) {
	var c Capability
	var tagsJSON []byte
	if err := rows.Scan(&c.ID, &c.AgentDID, &c.CapabilityID, &c.Description, &tagsJSON,
		&c.OutputSchema, &c.PriceCents, &c.CreatedAt); err != nil {
		return Capability{}, fmt.Errorf("scan capability row: %w", err)
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &c.Tags); err != nil {
			return Capability{}, fmt.Errorf("unmarshal capability tags: %w", err)
		}
	}
	return c, nil
}
