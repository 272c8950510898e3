// Package llm provides chat model adapters implementing ports.ChatService.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2:1b"

	maxLineSize = 1 << 20
)

// OllamaLLMAdapter implements ports.ChatService using the Ollama chat API.
type OllamaLLMAdapter struct {
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewOllamaLLMAdapter creates a new Ollama chat adapter. defaultModel is used
// when a call names no model.
func NewOllamaLLMAdapter(baseURL, defaultModel string) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if defaultModel == "" {
		defaultModel = defaultOllamaModel
	}
	return &OllamaLLMAdapter{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		client: &http.Client{
			Timeout: 300 * time.Second, // Longer timeout for streaming
		},
	}
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []entities.ChatMessage `json:"messages"`
	Stream   bool                   `json:"stream"`
}

type ollamaChatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// ChatStream opens a streaming chat call. Ollama answers with newline
// delimited JSON chunks, each relayed as one StreamToken.
func (a *OllamaLLMAdapter) ChatStream(ctx context.Context, model string, messages []entities.ChatMessage) (<-chan ports.StreamToken, error) {
	if model == "" {
		model = a.defaultModel
	}

	jsonData, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	ch := make(chan ports.StreamToken, 16)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		send := func(tok ports.StreamToken) bool {
			select {
			case ch <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue // Skip malformed lines
			}
			if chunk.Error != "" {
				send(ports.StreamToken{Done: true, Error: fmt.Errorf("Ollama: %s", chunk.Error)})
				return
			}

			if !send(ports.StreamToken{Content: chunk.Message.Content, Done: chunk.Done}) {
				return
			}
			if chunk.Done {
				return
			}
		}

		// A done chunk returns above, so the body ended early.
		err := scanner.Err()
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case err == nil:
			err = fmt.Errorf("Ollama stream ended before done: %w", io.ErrUnexpectedEOF)
		}
		send(ports.StreamToken{Done: true, Error: err})
	}()

	return ch, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Models lists the models installed in the Ollama instance.
func (a *OllamaLLMAdapter) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
