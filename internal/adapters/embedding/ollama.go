// Package embedding provides embedding adapters.
// Each adapter implements ports.EmbeddingService and tags provider failures
// with entities.ErrEmbeddingService.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
)

// OllamaAdapter implements ports.EmbeddingService using the Ollama API.
type OllamaAdapter struct {
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewOllamaAdapter creates a new Ollama embedding adapter. defaultModel is
// used when a call names no model.
func NewOllamaAdapter(baseURL, defaultModel string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if defaultModel == "" {
		defaultModel = defaultOllamaModel
	}
	return &OllamaAdapter{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (a *OllamaAdapter) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		model = a.defaultModel
	}

	jsonData, err := json.Marshal(ollamaEmbedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		log.Printf("[ERROR] Ollama embedding call failed: %v", err)
		return nil, fmt.Errorf("%w: calling Ollama: %w", entities.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: Ollama returned status %d", entities.ErrEmbeddingService, resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", entities.ErrEmbeddingService, err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: Ollama returned an empty embedding for model %s", entities.ErrEmbeddingService, model)
	}

	log.Printf("[DEBUG] Got embedding with %d dimensions from %s", len(embedResp.Embedding), model)
	return embedResp.Embedding, nil
}
