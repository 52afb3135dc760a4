package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Sqrt(sumSq)
}

func TestFallbackEmbedDimensionAndNorm(t *testing.T) {
	e := New(nil)
	v := e.Embed(context.Background(), "find me a weather agent")
	require.Len(t, v, Dim)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
}

func TestFallbackEmbedIsDeterministic(t *testing.T) {
	e := New(nil)
	a := e.Embed(context.Background(), "same text")
	b := e.Embed(context.Background(), "same text")
	assert.Equal(t, a, b)
}

func TestEmptyInputIsZeroVector(t *testing.T) {
	e := New(nil)
	v := e.Embed(context.Background(), "   ")
	require.Len(t, v, Dim)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

type failingModel struct{ calls int }

func (m *failingModel) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	return nil, errors.New("model unavailable")
}

func TestModelFailureLatchesToFallbackPermanently(t *testing.T) {
	m := &failingModel{}
	e := New(m)

	e.Embed(context.Background(), "first call")
	assert.Equal(t, 1, m.calls)

	e.Embed(context.Background(), "second call")
	assert.Equal(t, 1, m.calls, "model should not be retried once fallback has latched")
}

type succeedingModel struct{ vec []float32 }

func (m *succeedingModel) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return m.vec, nil
}

func TestModelPathAdaptsDimension(t *testing.T) {
	m := &succeedingModel{vec: []float32{1, 2, 3}}
	e := New(m)
	v := e.Embed(context.Background(), "short vector")
	require.Len(t, v, Dim)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
}
