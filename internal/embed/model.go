package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
)

// langchainModel wraps a langchaingo embeddings.Embedder backed by a
// *googleai.GoogleAI client to satisfy the Model interface. This is the
// "real model path" of spec.md section 4.2; EMBED_MODEL selects the
// backing model name, GOOGLE_API_KEY (or GEMINI_API_KEY) supplies
// credentials. EmbedText returns the backing model's vector unchanged;
// Embedder.Embed adapts its dimension and re-normalizes it.
type langchainModel struct {
	embedder *embeddings.EmbedderImpl
}

// NewModelFromEnv constructs the real embedding path from environment
// variables. It returns (nil, nil) when no model is configured, which
// callers should treat as "use the fallback path".
func NewModelFromEnv() (Model, error) {
	modelName := os.Getenv("EMBED_MODEL")
	apiKey := firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY"))
	if modelName == "" || apiKey == "" {
		return nil, nil
	}

	llm, err := googleai.New(
		context.Background(),
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultEmbeddingModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding model client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &langchainModel{embedder: embedder}, nil
}

func (m *langchainModel) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vecs[0], nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
