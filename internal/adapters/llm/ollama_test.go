package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

func TestOllamaLLM_ChatStream(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)

		// Streaming response - newline delimited JSON
		w.Write([]byte(`{"message":{"role":"assistant","content":"Hello"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":" world"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":"!"},"done":true}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	messages := []entities.ChatMessage{
		{Role: entities.RoleSystem, Content: "sys"},
		{Role: entities.RoleUser, Content: "hi"},
	}
	ch, err := adapter.ChatStream(context.Background(), "chat-model", messages)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var sb strings.Builder
	var sawDone bool
	for token := range ch {
		if token.Error != nil {
			t.Fatalf("unexpected error token: %v", token.Error)
		}
		sb.WriteString(token.Content)
		sawDone = sawDone || token.Done
	}

	if sb.String() != "Hello world!" {
		t.Errorf("unexpected answer %q", sb.String())
	}
	if !sawDone {
		t.Error("expected a done token")
	}
	if got.Model != "chat-model" || !got.Stream {
		t.Errorf("unexpected request model=%q stream=%v", got.Model, got.Stream)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != entities.RoleSystem || got.Messages[1].Content != "hi" {
		t.Errorf("messages not forwarded verbatim: %+v", got.Messages)
	}
}

func TestOllamaLLM_ChatStreamProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"Par"},"done":false}` + "\n"))
		w.Write([]byte(`{"error":"model crashed"}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	ch, err := adapter.ChatStream(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var lastErr error
	for token := range ch {
		if token.Error != nil {
			lastErr = token.Error
		}
	}
	if lastErr == nil || !strings.Contains(lastErr.Error(), "model crashed") {
		t.Errorf("expected provider error, got %v", lastErr)
	}
}

func TestOllamaLLM_ChatStreamTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"Half an"},"done":false}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	ch, err := adapter.ChatStream(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var tokens []ports.StreamToken
	for token := range ch {
		tokens = append(tokens, token)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected content then error, got %+v", tokens)
	}
	if tokens[0].Content != "Half an" || tokens[0].Done {
		t.Errorf("unexpected first token %+v", tokens[0])
	}
	last := tokens[1]
	if !last.Done || !errors.Is(last.Error, io.ErrUnexpectedEOF) {
		t.Errorf("expected truncation error, got %+v", last)
	}
}

func TestOllamaLLM_ChatStreamCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for {
			if _, err := w.Write([]byte(`{"message":{"content":"."},"done":false}` + "\n")); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-release:
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	adapter := NewOllamaLLMAdapter(server.URL, "test")
	ch, err := adapter.ChatStream(ctx, "", nil)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not closed after cancel")
	}
}

func TestOllamaLLM_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test")
	if _, err := adapter.ChatStream(context.Background(), "test", nil); err == nil {
		t.Error("should error on 404")
	}
}

func TestOllamaLLM_Models(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:1b"},{"name":"nomic-embed-text:latest"}]}`))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "")
	models, err := adapter.Models(context.Background())
	if err != nil {
		t.Fatalf("models failed: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3.2:1b" {
		t.Errorf("unexpected models %v", models)
	}
}

func TestOllamaLLM_ModelsUnreachable(t *testing.T) {
	adapter := NewOllamaLLMAdapter("http://127.0.0.1:1", "")
	if _, err := adapter.Models(context.Background()); err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestOllamaLLM_DefaultValues(t *testing.T) {
	adapter := NewOllamaLLMAdapter("", "")
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
	if adapter.defaultModel != "llama3.2:1b" {
		t.Error("should default to llama3.2:1b")
	}
}
