// Package embed implements the text-to-vector embedding abstraction:
// a real sentence-embedding model path with a deterministic hash-based
// fallback, normalized to a fixed dimension (spec.md section 4.2).
package embed

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"
	"sync/atomic"
)

// Dim is the fixed output dimension of every embedding this service
// produces, regardless of which path produced it.
const Dim = 384

// Model is the minimal interface a real embedding backend must satisfy.
// *langchainModel (model.go) is the production implementation, backed by
// github.com/tmc/langchaingo/embeddings.
type Model interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Embedder is the process-wide text embedder. It uses the model path
// until the first model failure (or from the start, the fallback path
// when no model is configured); once it has switched to the fallback
// path it never calls the model again.
type Embedder struct {
	model Model

	fallback atomic.Bool // true once the model has failed or was never configured
}

// New constructs an Embedder. model may be nil, in which case the
// fallback path is used from the start.
func New(model Model) *Embedder {
	e := &Embedder{model: model}
	if model == nil {
		e.fallback.Store(true)
	}
	return e
}

// Embed returns a unit vector of length Dim for text. Empty (after
// trimming) input returns the zero vector without invoking either path.
func (e *Embedder) Embed(ctx context.Context, text string) []float32 {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return make([]float32, Dim)
	}

	if !e.usingFallback() {
		if v, err := e.model.EmbedText(ctx, clean); err == nil {
			return adaptDim(v)
		}
		// Model failed: latch to fallback permanently for the rest of
		// the process lifetime. An operator restarts the process to
		// retry model load. Store is idempotent under concurrent
		// failures, so no additional synchronization is needed.
		e.fallback.Store(true)
	}

	return fallbackEmbed(clean)
}

func (e *Embedder) usingFallback() bool {
	return e.fallback.Load() || e.model == nil
}

// adaptDim truncates or zero-pads v to Dim and re-normalizes to a unit
// vector, per spec.md's primary-path dimension-adaptation rule.
func adaptDim(v []float32) []float32 {
	out := make([]float32, Dim)
	n := len(v)
	if n > Dim {
		n = Dim
	}
	copy(out, v[:n])
	normalize(out)
	return out
}

// fallbackEmbed is the SHA-256-derived deterministic path: byte-for-byte
// reproducible for identical (already lowercased+trimmed) input.
func fallbackEmbed(clean string) []float32 {
	sum := sha256.Sum256([]byte(clean))

	out := make([]float32, Dim)
	for i := 0; i < Dim; i++ {
		b := sum[i%len(sum)]
		out[i] = (float32(b) / 127.5) - 1
	}
	normalize(out)
	return out
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
