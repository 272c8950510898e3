package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIAdapter implements ports.ChatService against any OpenAI-compatible
// chat completions endpoint.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

// NewOpenAIAdapter creates an OpenAI chat adapter. An empty baseURL keeps the
// SDK default.
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

// ChatStream opens a streaming chat completion and relays content deltas.
func (a *OpenAIAdapter) ChatStream(ctx context.Context, model string, messages []entities.ChatMessage) (<-chan ports.StreamToken, error) {
	if model == "" {
		model = a.defaultModel
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    openai.ChatModel(model),
	})
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("calling OpenAI: %w", err)
	}

	ch := make(chan ports.StreamToken, 16)

	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(tok ports.StreamToken) bool {
			select {
			case ch <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			done := choice.FinishReason != ""
			if !send(ports.StreamToken{Content: choice.Delta.Content, Done: done}) {
				return
			}
			if done {
				return
			}
		}

		// A finish reason returns above, so the stream ended early.
		err := stream.Err()
		if err == nil {
			err = fmt.Errorf("OpenAI stream ended without a finish reason: %w", io.ErrUnexpectedEOF)
		}
		send(ports.StreamToken{Done: true, Error: err})
	}()

	return ch, nil
}

func toOpenAIMessages(messages []entities.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case entities.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case entities.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
