// Package card implements canonical serialization and signature
// verification of agent cards (spec.md section 4.1).
package card

import "encoding/json"

// CapabilitySpec is one entry of a card's capability list.
type CapabilitySpec struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
	EmbeddingDim *int            `json:"embeddingDim,omitempty"`
}

// Card is the self-described, signed agent metadata object.
//
// Metadata and the capabilities' input/output schemas are kept as raw JSON
// rather than decoded into Go maps: per spec.md's design notes these
// fields are opaque and must round-trip byte-for-byte, including the
// insertion order of any nested object keys, which a map[string]any
// cannot preserve.
type Card struct {
	DID          string           `json:"did"`
	Endpoint     string           `json:"endpoint"`
	PublicKey    string           `json:"publicKey"`
	Version      int              `json:"version"`
	Lineage      *string          `json:"lineage,omitempty"`
	Capabilities []CapabilitySpec `json:"capabilities"`
	Metadata     json.RawMessage  `json:"metadata,omitempty"`
}
