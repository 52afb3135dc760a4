package registry

import "encoding/json"

// CapabilityInput is one capability entry of a registration request. The
// capability id may arrive as either capabilityId or capability_id (the
// alias is resolved during decoding, see request.go); an absent id is
// assigned a fresh UUID.
type CapabilityInput struct {
	CapabilityID string          `json:"-"`
	Description  string          `json:"description"`
	Tags         []string        `json:"tags,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// capabilityWire is the literal JSON shape, capturing both spellings of
// the capability id so Request.UnmarshalJSON can alias them.
type capabilityWire struct {
	CapabilityIDCamel string          `json:"capabilityId"`
	CapabilityIDSnake string          `json:"capability_id"`
	Description       string          `json:"description"`
	Tags              []string        `json:"tags"`
	InputSchema       json.RawMessage `json:"input_schema"`
	OutputSchema      json.RawMessage `json:"output_schema"`
}

// CardWire mirrors card.Card's wire shape for the register request body;
// kept separate from card.Card so this package's JSON tags stay
// independent of the card package's canonicalization concerns.
type CardWire struct {
	DID          string                `json:"did"`
	Endpoint     string                `json:"endpoint"`
	PublicKey    string                `json:"publicKey"`
	Version      int                   `json:"version"`
	Lineage      *string               `json:"lineage,omitempty"`
	Capabilities []CapabilityCardEntry `json:"capabilities"`
	Metadata     json.RawMessage       `json:"metadata,omitempty"`
}

// CapabilityCardEntry is one capability entry inside a card, per spec.md
// section 6's card structure.
type CapabilityCardEntry struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
	EmbeddingDim *int            `json:"embeddingDim,omitempty"`
}

// Request is a decoded, alias-resolved register request body.
type Request struct {
	DID           string            `json:"did"`
	Name          *string           `json:"name,omitempty"`
	Endpoint      *string           `json:"endpoint,omitempty"`
	WalletAddress *string           `json:"walletAddress,omitempty"`
	Capabilities  []CapabilityInput `json:"-"`
	Card          *CardWire         `json:"acard,omitempty"`
	CardSignature *string           `json:"acard_signature,omitempty"`
}

// Response is the success body of a register call.
type Response struct {
	OK         bool `json:"ok"`
	Registered int  `json:"registered"`
}
