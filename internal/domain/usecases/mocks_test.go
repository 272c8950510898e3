package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	calls   atomic.Int32
	embedFn func(text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, model, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{float32(len(text)), 1}, nil
}

// keywordEmbedder maps text onto a tiny topic space so similarity is predictable.
func keywordEmbedder(text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := []float32{0.05, 0.05, 0.05}
	if strings.Contains(lower, "france") || strings.Contains(lower, "paris") {
		vec[0] = 1
	}
	if strings.Contains(lower, "germany") || strings.Contains(lower, "berlin") {
		vec[1] = 1
	}
	if strings.Contains(lower, "capital") {
		vec[2] = 0.3
	}
	return vec, nil
}

// mockStore implements ports.EmbeddingStore for testing
type mockStore struct {
	mu      sync.Mutex
	entries map[string][][]float32
	corrupt map[string]bool
	saves   int
	loadErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		entries: make(map[string][][]float32),
		corrupt: make(map[string]bool),
	}
}

func (m *mockStore) Load(ctx context.Context, docID string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.corrupt[docID] {
		return nil, entities.ErrCacheCorrupt
	}
	e, ok := m.entries[docID]
	if !ok {
		return nil, entities.ErrCacheMiss
	}
	return e, nil
}

func (m *mockStore) Save(ctx context.Context, docID string, embeddings [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[docID] = embeddings
	delete(m.corrupt, docID)
	m.saves++
	return nil
}

func (m *mockStore) Delete(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, docID)
	delete(m.corrupt, docID)
	return nil
}

// mockParser implements ports.DocumentParser for testing
type mockParser struct {
	err error
}

func (m *mockParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return string(data), nil
}

func (m *mockParser) SupportedFormats() []string {
	return []string{"txt"}
}

// mockLLM implements ports.ChatService for testing
type mockLLM struct {
	tokens   []ports.StreamToken
	endless  bool // keep sending until cancelled
	openErr  error
	received []entities.ChatMessage
	model    string
}

func (m *mockLLM) ChatStream(ctx context.Context, model string, messages []entities.ChatMessage) (<-chan ports.StreamToken, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.received = messages
	m.model = model

	ch := make(chan ports.StreamToken)
	go func() {
		defer close(ch)
		send := func(tok ports.StreamToken) bool {
			select {
			case ch <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, tok := range m.tokens {
			if !send(tok) {
				return
			}
		}
		for m.endless {
			if !send(ports.StreamToken{Content: "."}) {
				return
			}
		}
	}()
	return ch, nil
}

var errBoom = errors.New("boom")
