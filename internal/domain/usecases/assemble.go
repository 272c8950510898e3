package usecases

import (
	"slices"
	"strings"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

const (
	// DefaultTopK is the number of paragraphs injected into the prompt.
	DefaultTopK = 5

	// DefaultMaxHistory is the number of most recent turns sent to the model.
	DefaultMaxHistory = 5

	// DefaultChatPrompt is the system prompt for sessions without a document.
	DefaultChatPrompt = "You are a helpful assistant."
)

// ContextAssembler builds the bounded message list for a generation request.
type ContextAssembler struct {
	topK       int
	maxHistory int
	chatPrompt string
}

// NewContextAssembler creates a ContextAssembler. Non-positive bounds fall back to defaults.
func NewContextAssembler(topK, maxHistory int, chatPrompt string) *ContextAssembler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if chatPrompt == "" {
		chatPrompt = DefaultChatPrompt
	}
	return &ContextAssembler{
		topK:       topK,
		maxHistory: maxHistory,
		chatPrompt: chatPrompt,
	}
}

// TopK returns the configured retrieval depth.
func (a *ContextAssembler) TopK() int {
	return a.topK
}

// AssembleContext joins the paragraphs of the first k ranked entries with
// newlines, most relevant first. Indexes with no paragraph are skipped.
func AssembleContext(ranked []entities.Ranked, paragraphs []string, k int) string {
	if k > len(ranked) {
		k = len(ranked)
	}
	if k <= 0 {
		return ""
	}

	parts := make([]string, 0, k)
	for _, r := range ranked[:k] {
		if r.Index < 0 || r.Index >= len(paragraphs) {
			continue
		}
		parts = append(parts, paragraphs[r.Index])
	}
	return strings.Join(parts, "\n")
}

// AssembleHistory returns a copy of the last maxTurns turns in conversation order.
// Older turns are dropped, never summarized.
func AssembleHistory(conversation []entities.ChatMessage, maxTurns int) []entities.ChatMessage {
	if maxTurns <= 0 {
		return nil
	}
	start := max(len(conversation)-maxTurns, 0)
	return slices.Clone(conversation[start:])
}

// DocumentPrompt renders the system turn that grounds answers in context.
func DocumentPrompt(context string) string {
	var sb strings.Builder
	sb.WriteString("You are a document analysis assistant. You have been provided with a specific document to analyze.\n")
	sb.WriteString("IMPORTANT: Always refer to and use the following document context to answer questions.\n\n")
	sb.WriteString("DOCUMENT CONTEXT:\n")
	sb.WriteString(context)
	sb.WriteString("\n")
	return sb.String()
}

// Messages composes the generation request: one system turn followed by the
// bounded recent conversation.
func (a *ContextAssembler) Messages(ranked []entities.Ranked, sess entities.Session) []entities.ChatMessage {
	system := entities.ChatMessage{Role: entities.RoleSystem, Content: a.chatPrompt}
	if sess.HasDocument() {
		context := AssembleContext(ranked, sess.Document.Paragraphs, a.topK)
		system.Content = DocumentPrompt(context)
	}

	history := AssembleHistory(sess.Messages, a.maxHistory)
	return append([]entities.ChatMessage{system}, history...)
}
