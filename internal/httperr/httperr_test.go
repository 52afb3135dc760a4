package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMapsToHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		BadRequest:   http.StatusBadRequest,
		Unauthorized: http.StatusUnauthorized,
		NotFound:     http.StatusNotFound,
		RateLimited:  http.StatusTooManyRequests,
		Unhealthy:    http.StatusServiceUnavailable,
		Internal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, New(kind, "x").HTTPStatus())
	}
}

func TestWrapFillsDetailsFromCause(t *testing.T) {
	cause := errors.New("connection refused")
	e := Wrap(Internal, "store failed", cause)
	assert.Equal(t, "connection refused", e.Details)
	assert.ErrorIs(t, e, cause)
}

func TestWriteRendersEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, Validationf([]string{"did is required"}, "bad request"))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "bad request", env.Error)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
	assert.Equal(t, []string{"did is required"}, env.Validation)
}

func TestWriteFallsBackToInternalForPlainErrors(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, errors.New("unexpected"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
