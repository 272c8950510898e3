package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIAdapter implements ports.EmbeddingService against any
// OpenAI-compatible /embeddings endpoint.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

// NewOpenAIAdapter creates an OpenAI embedding adapter. An empty baseURL
// keeps the SDK default.
func NewOpenAIAdapter(baseURL, apiKey, defaultModel string, opts ...option.RequestOption) *OpenAIAdapter {
	if defaultModel == "" {
		defaultModel = defaultOpenAIModel
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIAdapter{
		client:       openai.NewClient(reqOpts...),
		defaultModel: defaultModel,
	}
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		model = a.defaultModel
	}

	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: calling OpenAI: %w", entities.ErrEmbeddingService, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: OpenAI returned no embedding for model %s", entities.ErrEmbeddingService, model)
	}

	src := resp.Data[0].Embedding
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out, nil
}
