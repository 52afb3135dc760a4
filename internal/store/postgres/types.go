package postgres

import (
	"encoding/json"
	"time"
)

// Agent is the relational row for an agent, per spec.md section 3.
type Agent struct {
	DID               string
	Name              *string
	Endpoint          string
	PublicKey         *string
	WalletAddress     *string
	Reputation        float64
	AvailabilityScore float64
	LastSeen          *time.Time
	CardVersion       *int
	CardLineage       *string
	CardSignature     *string
	CardRaw           json.RawMessage
	CreatedAt         time.Time
}

// Capability is the relational row for one agent capability.
type Capability struct {
	ID           int64
	AgentDID     string
	CapabilityID string
	Description  string
	Tags         []string
	OutputSchema json.RawMessage
	PriceCents   int
	CreatedAt    time.Time
}

// UpsertAgentFields is the insert-or-update payload for UpsertAgent.
// WalletAddress is a *string so nil is distinguishable from "clear the
// wallet": per spec.md section 4.3, a nil wallet in the payload preserves
// whatever wallet is already stored.
type UpsertAgentFields struct {
	DID           string
	Name          *string
	Endpoint      string
	PublicKey     *string
	WalletAddress *string
	CardVersion   *int
	CardLineage   *string
	CardSignature *string
	CardRaw       json.RawMessage
}

// NewCapability is the insert payload used by InsertCapability and
// InsertCapabilitiesBatch.
type NewCapability struct {
	CapabilityID string
	Description  string
	Tags         []string
	OutputSchema json.RawMessage
	PriceCents   int
}
