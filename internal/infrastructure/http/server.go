// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/usecases"
)

var errUnknownSession = errors.New("unknown session")

// ModelLister lists the chat models a provider can serve.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// CacheCounter reports how many documents the embedding cache holds.
type CacheCounter interface {
	EntryCount(ctx context.Context) (int, error)
}

// Server is the HTTP server for the chat API and UI.
type Server struct {
	chatUseCase   *usecases.ChatUseCase
	ingestUseCase *usecases.IngestUseCase
	models        ModelLister
	cacheCounter  CacheCounter
	sessions      *SessionRegistry
	chatModel     string
	addr          string
	maxUpload     int64
}

// NewServer creates a new HTTP server. models may be nil when the provider
// cannot list its models.
func NewServer(
	chatUC *usecases.ChatUseCase,
	ingestUC *usecases.IngestUseCase,
	models ModelLister,
	chatModel string,
	addr string,
	maxUploadMB int,
) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Server{
		chatUseCase:   chatUC,
		ingestUseCase: ingestUC,
		models:        models,
		sessions:      NewSessionRegistry(),
		chatModel:     chatModel,
		addr:          addr,
		maxUpload:     int64(maxUploadMB) << 20,
	}
}

// WithCacheCounter adds the cache entry count to the health report.
func (s *Server) WithCacheCounter(c CacheCounter) *Server {
	s.cacheCounter = c
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// API
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/document", s.handleUpload)
	mux.HandleFunc("GET /api/sessions/{id}/chat/stream", s.handleChatStream) // SSE streaming
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return corsMiddleware(loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // Longer for streaming
	}

	log.Printf("[INFO] docchat server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type documentView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Paragraphs int    `json:"paragraphs"`
}

type sessionView struct {
	ID         string                 `json:"id"`
	Model      string                 `json:"model"`
	Document   *documentView          `json:"document"`
	Messages   []entities.ChatMessage `json:"messages"`
	CreatedAt  time.Time              `json:"created_at"`
	LastStream string                 `json:"last_stream,omitempty"`
}

func newSessionView(sess entities.Session) sessionView {
	view := sessionView{
		ID:        sess.ID,
		Model:     sess.Model,
		Messages:  sess.Messages,
		CreatedAt: sess.CreatedAt,
	}
	if view.Messages == nil {
		view.Messages = []entities.ChatMessage{}
	}
	if sess.Document != nil {
		view.Document = &documentView{
			ID:         sess.Document.ID,
			Name:       sess.Document.Name,
			Paragraphs: len(sess.Document.Paragraphs),
		}
	}
	return view
}

// handleCreateSession starts a conversation. The body may name a model.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Model == "" {
		req.Model = s.chatModel
	}

	sess := usecases.NewSession(req.Model)
	s.sessions.Add(sess)
	log.Printf("[INFO] Session %s created (model %s)", sess.ID, sess.Model)
	writeJSON(w, http.StatusCreated, newSessionView(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownSession.Error())
		return
	}
	view := newSessionView(sess)
	view.LastStream = s.sessions.LastStream(sess.ID)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, errUnknownSession.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload binds the multipart "file" field to the session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, release, err := s.sessions.Acquire(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	updated := sess
	defer func() { release(updated) }()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}

	name := filepath.Base(header.Filename)
	updated, err = s.ingestUseCase.Ingest(r.Context(), sess, name, data)
	if err != nil {
		log.Printf("[ERROR] Upload %q for session %s: %v", name, sess.ID, err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(updated))
}

// handleChatStream answers q over SSE. The client going away stops the
// generation; whatever was streamed is kept as the assistant turn.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	if question == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess, release, err := s.sessions.Acquire(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	stream, err := s.chatUseCase.Ask(r.Context(), sess, question)
	if err != nil {
		release(sess)
		log.Printf("[ERROR] Ask in session %s: %v", sess.ID, err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for stream.Next() {
		sendSSE(w, flusher, map[string]any{"content": stream.Text()})
	}
	updated := stream.Close()
	s.sessions.RecordStream(sess.ID, stream.Status())
	release(updated)

	final := map[string]any{"done": true, "status": stream.Status().String()}
	if err := stream.Err(); err != nil {
		final["error"] = err.Error()
		log.Printf("[ERROR] Stream in session %s: %v", sess.ID, err)
	}
	log.Printf("[DEBUG] Stream in session %s %s after %d bytes", sess.ID, stream.Status(), len(stream.Answer()))
	sendSSE(w, flusher, final)
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data map[string]any) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeJSON(w, http.StatusOK, map[string]any{"models": []string{s.chatModel}})
		return
	}
	models, err := s.models.Models(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok", "sessions": s.sessions.Len()}
	if s.cacheCounter != nil {
		n, err := s.cacheCounter.EntryCount(r.Context())
		if err != nil {
			log.Printf("[WARN] Counting cache entries: %v", err)
		} else {
			health["cache_entries"] = n
		}
	}
	writeJSON(w, http.StatusOK, health)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, entities.ErrDocumentUnreadable), errors.Is(err, entities.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrEmbeddingService), errors.Is(err, entities.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[INFO] %s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
