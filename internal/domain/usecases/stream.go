package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// StreamStatus tells how a generation stream ended.
type StreamStatus int

const (
	StreamActive StreamStatus = iota
	StreamCompleted
	StreamFailed
	StreamStopped
)

func (s StreamStatus) String() string {
	switch s {
	case StreamActive:
		return "active"
	case StreamCompleted:
		return "completed"
	case StreamFailed:
		return "failed"
	case StreamStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stream is a finite, single-pass sequence of answer fragments. Every
// fragment is also appended to an accumulator that becomes the assistant
// turn when the stream is closed. A Stream is not safe for concurrent use.
type Stream struct {
	ctx    context.Context
	tokens <-chan ports.StreamToken
	cancel context.CancelFunc
	sess   entities.Session

	answer   strings.Builder
	fragment string
	lastDone bool
	status   StreamStatus
	err      error

	closed bool
	final  entities.Session
}

func newStream(ctx context.Context, sess entities.Session, tokens <-chan ports.StreamToken, cancel context.CancelFunc) *Stream {
	return &Stream{
		ctx:    ctx,
		tokens: tokens,
		cancel: cancel,
		sess:   sess,
	}
}

// Next advances to the next fragment. It returns false once the stream has
// ended; Status and Err then tell why.
func (s *Stream) Next() bool {
	if s.status != StreamActive {
		return false
	}
	if s.lastDone {
		s.end(StreamCompleted, nil)
		return false
	}

	for {
		tok, ok := <-s.tokens
		if !ok {
			// Only a done marker means the provider finished. A channel
			// closed without one was either cancelled or truncated.
			if s.ctx.Err() != nil {
				s.end(StreamStopped, nil)
			} else {
				s.end(StreamFailed, fmt.Errorf("%w: stream ended before completion: %w", entities.ErrGenerationService, io.ErrUnexpectedEOF))
			}
			return false
		}
		if tok.Error != nil {
			if errors.Is(tok.Error, context.Canceled) || s.ctx.Err() != nil {
				s.end(StreamStopped, nil)
			} else {
				s.end(StreamFailed, fmt.Errorf("%w: %w", entities.ErrGenerationService, tok.Error))
			}
			return false
		}
		if tok.Content == "" {
			if tok.Done {
				s.end(StreamCompleted, nil)
				return false
			}
			continue
		}

		s.fragment = tok.Content
		s.answer.WriteString(tok.Content)
		s.lastDone = tok.Done
		return true
	}
}

// Text returns the fragment produced by the last successful Next.
func (s *Stream) Text() string {
	return s.fragment
}

// Answer returns everything received so far.
func (s *Stream) Answer() string {
	return s.answer.String()
}

// Err returns the provider error when the stream failed.
func (s *Stream) Err() error {
	return s.err
}

// Status reports whether the stream is still running or how it ended.
func (s *Stream) Status() StreamStatus {
	return s.status
}

// Fragments adapts the stream to a range-over-func iterator. Breaking out of
// the loop leaves the stream open; call Close to stop it.
func (s *Stream) Fragments() iter.Seq[string] {
	return func(yield func(string) bool) {
		for s.Next() {
			if !yield(s.Text()) {
				return
			}
		}
	}
}

// Close stops the provider call if it is still running and returns the
// session with the assistant turn appended. A partial answer is kept as is.
// Calling Close again returns the same session.
func (s *Stream) Close() entities.Session {
	if s.closed {
		return s.final
	}

	if s.status == StreamActive {
		if s.lastDone {
			s.status = StreamCompleted
		} else {
			s.status = StreamStopped
		}
	}
	s.cancel()
	for range s.tokens {
		// drain so the producer can exit
	}

	s.closed = true
	s.final = s.sess.WithMessage(entities.ChatMessage{
		Role:    entities.RoleAssistant,
		Content: s.answer.String(),
	})
	return s.final
}

func (s *Stream) end(status StreamStatus, err error) {
	s.status = status
	s.err = err
	s.fragment = ""
}
