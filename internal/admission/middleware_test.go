package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sage-x-project/agent-registry/logger"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAPIKeyGuardRejectsWriteWithoutKey(t *testing.T) {
	g := NewGuard("secret", NewRateLimiter(100, 0), logger.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/register", nil)
	rec := httptest.NewRecorder()

	g.Wrap(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyGuardAllowsDiscoveryWithoutKey(t *testing.T) {
	g := NewGuard("secret", NewRateLimiter(100, 0), logger.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/discovery", nil)
	rec := httptest.NewRecorder()

	g.Wrap(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyGuardAllowsReadsWithoutKey(t *testing.T) {
	g := NewGuard("secret", NewRateLimiter(100, 0), logger.New())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	g.Wrap(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
