package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Canonicalize renders c in the fixed wire format used as the signing
// domain: field order did, endpoint, publicKey, version, lineage,
// capabilities, metadata; within each capability, id, description,
// inputSchema, outputSchema, embeddingDim; absent optionals are rendered
// as explicit null; no insignificant whitespace. The same function backs
// both signing and verification and must be bit-identical across callers.
func Canonicalize(c *Card) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey(&buf, "did", true)
	if err := writeJSONString(&buf, c.DID); err != nil {
		return nil, err
	}

	writeKey(&buf, "endpoint", false)
	if err := writeJSONString(&buf, c.Endpoint); err != nil {
		return nil, err
	}

	writeKey(&buf, "publicKey", false)
	if err := writeJSONString(&buf, c.PublicKey); err != nil {
		return nil, err
	}

	writeKey(&buf, "version", false)
	buf.WriteString(strconv.Itoa(c.Version))

	writeKey(&buf, "lineage", false)
	if c.Lineage == nil {
		buf.WriteString("null")
	} else if err := writeJSONString(&buf, *c.Lineage); err != nil {
		return nil, err
	}

	writeKey(&buf, "capabilities", false)
	buf.WriteByte('[')
	for i, cap := range c.Capabilities {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCapability(&buf, cap); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')

	writeKey(&buf, "metadata", false)
	if len(c.Metadata) == 0 {
		buf.WriteString("null")
	} else {
		compact, err := compactJSON(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("canonicalize metadata: %w", err)
		}
		buf.Write(compact)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCapability(buf *bytes.Buffer, cap CapabilitySpec) error {
	buf.WriteByte('{')

	writeKey(buf, "id", true)
	if err := writeJSONString(buf, cap.ID); err != nil {
		return err
	}

	writeKey(buf, "description", false)
	if err := writeJSONString(buf, cap.Description); err != nil {
		return err
	}

	writeKey(buf, "inputSchema", false)
	if err := writeRawOrNull(buf, cap.InputSchema); err != nil {
		return err
	}

	writeKey(buf, "outputSchema", false)
	if err := writeRawOrNull(buf, cap.OutputSchema); err != nil {
		return err
	}

	writeKey(buf, "embeddingDim", false)
	if cap.EmbeddingDim == nil {
		buf.WriteString("null")
	} else {
		buf.WriteString(strconv.Itoa(*cap.EmbeddingDim))
	}

	buf.WriteByte('}')
	return nil
}

func writeKey(buf *bytes.Buffer, key string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	buf.WriteByte('"')
	buf.WriteString(key)
	buf.WriteString(`":`)
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeRawOrNull(buf *bytes.Buffer, raw json.RawMessage) error {
	if len(raw) == 0 {
		buf.WriteString("null")
		return nil
	}
	compact, err := compactJSON(raw)
	if err != nil {
		return fmt.Errorf("compact raw JSON: %w", err)
	}
	buf.Write(compact)
	return nil
}

func compactJSON(raw json.RawMessage) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Compact(&out, raw); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
