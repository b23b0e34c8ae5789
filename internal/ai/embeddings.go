package ai

import (
	"context"
	"fmt"

	"webpagegenie/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder turns text into fixed-dimension vectors via the Gemini
// embedding API. There is no local fallback: provider failure aborts the
// calling pipeline.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

func NewEmbedder(ctx context.Context, cfg *config.Config) (*Embedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		client: client,
		model:  cfg.EmbeddingModel,
		dim:    cfg.EmbedDim,
	}, nil
}

// Embed returns the embedding vector for text. The caller applies the
// timeout; a malformed or empty provider response is an UpstreamError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, upstream("embed", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, upstream("embed", fmt.Errorf("no embedding returned"))
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds texts one by one, failing on the first provider error.
// Ingestion is offline work; sequential calls keep us inside free-tier
// rate limits.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, v)
	}
	return vecs, nil
}

// Dim is the configured embedding dimension.
func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
