package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityIDAliasCamelCase(t *testing.T) {
	var req Request
	body := []byte(`{"did":"did:x:a","capabilities":[{"capabilityId":"echo","description":"d"}]}`)
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Capabilities, 1)
	assert.Equal(t, "echo", req.Capabilities[0].CapabilityID)
}

func TestCapabilityIDAliasSnakeCase(t *testing.T) {
	var req Request
	body := []byte(`{"did":"did:x:a","capabilities":[{"capability_id":"echo","description":"d"}]}`)
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Capabilities, 1)
	assert.Equal(t, "echo", req.Capabilities[0].CapabilityID)
}

func TestMissingCapabilityIDGetsFreshUUID(t *testing.T) {
	var req Request
	body := []byte(`{"did":"did:x:a","capabilities":[{"description":"d1"},{"description":"d2"}]}`)
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Capabilities, 2)

	assert.NotEmpty(t, req.Capabilities[0].CapabilityID)
	assert.NotEmpty(t, req.Capabilities[1].CapabilityID)
	assert.NotEqual(t, req.Capabilities[0].CapabilityID, req.Capabilities[1].CapabilityID)
}
