package embedclient

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/simili-bot/issuebot/internal/core/errs"
)

// GeminiEmbedder implements Embedder against the Gemini embedding API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
	maxInput   int
}

// NewGeminiEmbedder creates a Gemini-backed embedder. dimensions must
// match model.embeddings_size from config; maxInput is model.max_input_size.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions, maxInput int) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions, maxInput: maxInput}, nil
}

// Close releases the underlying Gemini client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}

// Embed truncates text to maxInput characters, then calls the Gemini
// embedding model.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &errs.Permanent{Op: "Embed", Err: fmt.Errorf("text cannot be empty")}
	}
	text = Truncate(text, e.maxInput)

	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &errs.Retryable{Op: "Embed", Err: err}
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &errs.Retryable{Op: "Embed", Err: fmt.Errorf("empty embedding returned")}
	}
	return res.Embedding.Values, nil
}

// Dimensions reports the configured embedding width.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

var _ Embedder = (*GeminiEmbedder)(nil)
