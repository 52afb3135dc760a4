package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks a raw register request body against the register
// schema (spec.md section 6) before it is decoded into a Request.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded register schema.
func NewValidator() (*Validator, error) {
	loader := gojsonschema.NewStringLoader(registerSchema)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile register schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate returns the list of schema violations, if any, in human
// readable form. An empty slice means the body is schema-valid.
func (v *Validator) Validate(body []byte) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("evaluate register schema: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, strings.TrimSpace(e.String()))
	}
	return violations, nil
}

// registerSchema is the JSON Schema draft-07 document describing the
// register request body, per spec.md section 6.
const registerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Agent Register Request",
  "type": "object",
  "required": ["did", "capabilities"],
  "properties": {
    "did": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "endpoint": {"type": "string"},
    "walletAddress": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
    "acard": {"type": "object"},
    "acard_signature": {"type": "string"},
    "capabilities": {
      "type": "array",
      "minItems": 1,
      "maxItems": 25,
      "items": {
        "type": "object",
        "required": ["description"],
        "properties": {
          "capabilityId": {"type": "string"},
          "capability_id": {"type": "string"},
          "description": {"type": "string", "minLength": 1, "maxLength": 500},
          "tags": {
            "type": "array",
            "maxItems": 10,
            "items": {"type": "string", "maxLength": 64}
          },
          "input_schema": {},
          "output_schema": {}
        }
      }
    }
  }
}`
