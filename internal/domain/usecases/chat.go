package usecases

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// ChatUseCase answers questions about a session's document, or chats
// freely when the session has none.
type ChatUseCase struct {
	embedder   ports.EmbeddingService
	llm        ports.ChatService
	assembler  *ContextAssembler
	embedModel string
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
func NewChatUseCase(
	embedder ports.EmbeddingService,
	llm ports.ChatService,
	assembler *ContextAssembler,
	embedModel string,
) *ChatUseCase {
	return &ChatUseCase{
		embedder:   embedder,
		llm:        llm,
		assembler:  assembler,
		embedModel: embedModel,
	}
}

// Retrieve embeds question and ranks the session's paragraphs against it.
// It returns nil for sessions without paragraphs.
func (uc *ChatUseCase) Retrieve(ctx context.Context, sess entities.Session, question string) ([]entities.Ranked, error) {
	if !sess.HasDocument() || len(sess.Document.Embeddings) == 0 {
		return nil, nil
	}

	query, err := uc.embedder.Embed(ctx, uc.embedModel, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %w", entities.ErrEmbeddingService, err)
	}
	return Rank(query, sess.Document.Embeddings), nil
}

// Ask appends question to the conversation and opens a generation stream
// grounded on the most similar paragraphs. The caller must consume or Close
// the stream before asking again; Close returns the session with the answer.
func (uc *ChatUseCase) Ask(ctx context.Context, sess entities.Session, question string) (*Stream, error) {
	ranked, err := uc.Retrieve(ctx, sess, question)
	if err != nil {
		return nil, err
	}

	sess = sess.WithMessage(entities.ChatMessage{Role: entities.RoleUser, Content: question})
	messages := uc.assembler.Messages(ranked, sess)

	streamCtx, cancel := context.WithCancel(ctx)
	tokens, err := uc.llm.ChatStream(streamCtx, sess.Model, messages)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", entities.ErrGenerationService, err)
	}
	return newStream(streamCtx, sess, tokens, cancel), nil
}
