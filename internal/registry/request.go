package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// requestWire is the literal decoding shape; UnmarshalJSON on Request
// resolves it into the public Request/CapabilityInput types.
type requestWire struct {
	DID           string            `json:"did"`
	Name          *string           `json:"name"`
	Endpoint      *string           `json:"endpoint"`
	WalletAddress *string           `json:"walletAddress"`
	Capabilities  []capabilityWire  `json:"capabilities"`
	Card          *CardWire         `json:"acard"`
	CardSignature *string           `json:"acard_signature"`
}

// UnmarshalJSON resolves the capabilityId/capability_id alias and assigns
// a fresh UUID to any capability whose id was omitted, per spec.md
// section 4.6.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode register request: %w", err)
	}

	r.DID = w.DID
	r.Name = w.Name
	r.Endpoint = w.Endpoint
	r.WalletAddress = w.WalletAddress
	r.Card = w.Card
	r.CardSignature = w.CardSignature

	r.Capabilities = make([]CapabilityInput, len(w.Capabilities))
	for i, c := range w.Capabilities {
		id := c.CapabilityIDCamel
		if id == "" {
			id = c.CapabilityIDSnake
		}
		if id == "" {
			id = uuid.NewString()
		}
		r.Capabilities[i] = CapabilityInput{
			CapabilityID: id,
			Description:  c.Description,
			Tags:         c.Tags,
			InputSchema:  c.InputSchema,
			OutputSchema: c.OutputSchema,
		}
	}
	return nil
}
