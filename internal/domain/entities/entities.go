// Package entities contains core business entities.
// These are pure domain objects with no external dependencies.
package entities

import (
	"slices"
	"time"
)

// Document is an uploaded source after segmentation and embedding.
// Paragraphs[i] and Embeddings[i] always describe the same unit of text.
type Document struct {
	ID         string // cache key, derived from Name (and content, depending on policy)
	Name       string // uploaded filename
	Paragraphs []string
	Embeddings [][]float32
}

// Role identifies who produced a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Ranked is one retrieval candidate: a paragraph index and its similarity to the query.
type Ranked struct {
	Score float64
	Index int
}

// Session is the per-user conversation state. It is a value: operations take a
// Session and return the updated one instead of mutating shared state.
type Session struct {
	ID        string
	Model     string
	Document  *Document // nil in plain chat mode
	Messages  []ChatMessage
	CreatedAt time.Time
}

// WithMessage returns a copy of s with msg appended to the conversation.
// The receiver's Messages slice is never written to.
func (s Session) WithMessage(msg ChatMessage) Session {
	out := s
	out.Messages = append(slices.Clone(s.Messages), msg)
	return out
}

// WithDocument returns a copy of s bound to doc.
func (s Session) WithDocument(doc *Document) Session {
	out := s
	out.Document = doc
	return out
}

// HasDocument reports whether the session is grounded on an uploaded document.
func (s Session) HasDocument() bool {
	return s.Document != nil
}
