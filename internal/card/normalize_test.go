package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpointStripsOneTrailingSlash(t *testing.T) {
	assert.Equal(t, "http://h", NormalizeEndpointString("http://h/"))
}

func TestNormalizeEndpointIdempotent(t *testing.T) {
	once := NormalizeEndpointString("http://h/")
	twice := NormalizeEndpointString(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeEndpointNilOnEmpty(t *testing.T) {
	assert.Nil(t, NormalizeEndpoint(nil))
	empty := ""
	assert.Nil(t, NormalizeEndpoint(&empty))
}

func TestNormalizeEndpointDoesNotStripMultipleSlashes(t *testing.T) {
	assert.Equal(t, "http://h/", NormalizeEndpointString("http://h//"))
}
