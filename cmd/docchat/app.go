package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xcro3dile/docchat-go/internal/adapters/cachestore"
	"github.com/0xcro3dile/docchat-go/internal/adapters/embedding"
	"github.com/0xcro3dile/docchat-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docchat-go/internal/adapters/llm"
	"github.com/0xcro3dile/docchat-go/internal/adapters/loader"
	"github.com/0xcro3dile/docchat-go/internal/adapters/parser"
	"github.com/0xcro3dile/docchat-go/internal/config"
	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
	"github.com/0xcro3dile/docchat-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/docchat-go/internal/infrastructure/http"
	"github.com/0xcro3dile/docchat-go/internal/tui"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.AppConfig
	loader   ports.DocumentLoader
	cache    *usecases.EmbeddingCache
	ingest   *usecases.IngestUseCase
	chatUC   *usecases.ChatUseCase
	models   httpserver.ModelLister
	counter  httpserver.CacheCounter
	closeFns []func()
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	a := &app{cfg: cfg}

	embedder, chatLLM, err := a.newProvider()
	if err != nil {
		return nil, err
	}

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}

	a.loader = loader.NewFileLoader(cfg.Watch.Extensions...)
	a.cache = usecases.NewEmbeddingCache(embedder, store, usecases.KeyPolicy(cfg.Cache.Key))
	a.ingest = usecases.NewIngestUseCase(parser.NewDefaultRegistry(), a.cache, cfg.EmbedModel())
	assembler := usecases.NewContextAssembler(cfg.Chat.TopK, cfg.Chat.MaxHistory, cfg.Chat.SystemPrompt)
	a.chatUC = usecases.NewChatUseCase(embedder, chatLLM, assembler, cfg.EmbedModel())

	log.Printf("[INFO] Provider %s (chat %s, embeddings %s), cache %s keyed by %s",
		cfg.Provider, cfg.ChatModel(), cfg.EmbedModel(), cfg.Cache.Backend, cfg.Cache.Key)
	return a, nil
}

// newProvider builds the embedding and generation adapters for cfg.Provider.
func (a *app) newProvider() (ports.EmbeddingService, ports.ChatService, error) {
	cfg := a.cfg
	switch cfg.Provider {
	case "openai":
		apiKey := os.Getenv(cfg.OpenAI.APIKeyEnv)
		if apiKey == "" {
			return nil, nil, fmt.Errorf("openai provider requires $%s", cfg.OpenAI.APIKeyEnv)
		}
		emb := embedding.NewOpenAIAdapter(cfg.OpenAI.BaseURL, apiKey, cfg.OpenAI.EmbedModel)
		gen := llm.NewOpenAIAdapter(cfg.OpenAI.BaseURL, apiKey, cfg.OpenAI.ChatModel)
		return emb, gen, nil
	default:
		emb := embedding.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
		gen := llm.NewOllamaLLMAdapter(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel)
		a.models = gen
		return emb, gen, nil
	}
}

// newStore opens the configured cache backend.
func (a *app) newStore(ctx context.Context) (ports.EmbeddingStore, error) {
	cfg := a.cfg.Cache
	switch cfg.Backend {
	case "memory":
		return cachestore.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		store, err := cachestore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { store.Close() })
		a.counter = store
		return store, nil
	case "postgres":
		store, err := cachestore.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres cache: %w", err)
		}
		a.closeFns = append(a.closeFns, store.Close)
		return store, nil
	default:
		store, err := cachestore.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening cache dir: %w", err)
		}
		return store, nil
	}
}

// Close releases backend connections.
func (a *app) Close() {
	for _, fn := range a.closeFns {
		fn()
	}
}

func (a *app) serve(ctx context.Context) error {
	srv := httpserver.NewServer(a.chatUC, a.ingest, a.models, a.cfg.ChatModel(), a.cfg.Server.Addr, a.cfg.Server.MaxUploadMB)
	if a.counter != nil {
		srv.WithCacheCounter(a.counter)
	}
	return srv.Start(ctx)
}

// loadSession reads path and returns a fresh session bound to it.
func (a *app) loadSession(ctx context.Context, path string) (entities.Session, error) {
	name, data, err := a.loader.Load(ctx, path)
	if err != nil {
		return entities.Session{}, err
	}
	return a.ingest.Ingest(ctx, usecases.NewSession(a.cfg.ChatModel()), name, data)
}

func (a *app) chat(ctx context.Context, path string) error {
	logFile, err := os.OpenFile("docchat.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.SetOutput(newLevelFilter(logFile, a.cfg.Log.Debug))

	sess, err := a.loadSession(ctx, path)
	if err != nil {
		return err
	}

	m := tui.New(a.chatUC, sess)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// ask streams one answer to w as fragments arrive.
func (a *app) ask(ctx context.Context, path, question string, w io.Writer) error {
	sess, err := a.loadSession(ctx, path)
	if err != nil {
		return err
	}

	stream, err := a.chatUC.Ask(ctx, sess, question)
	if err != nil {
		return err
	}
	defer stream.Close()

	for fragment := range stream.Fragments() {
		fmt.Fprint(w, fragment)
	}
	fmt.Fprintln(w)

	if stream.Status() == usecases.StreamFailed {
		return stream.Err()
	}
	return nil
}

func (a *app) watch(ctx context.Context) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.cfg.Watch.Extensions)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Stop()

	log.Printf("[INFO] Watching %s for changes", a.cfg.Watch.Dir)
	invalidated, err := usecases.NewCacheInvalidator(watcher, a.cache).Run(ctx, a.cfg.Watch.Dir)
	if err != nil {
		return err
	}
	log.Printf("[INFO] Watcher stopped after %d invalidations", invalidated)
	return nil
}

// invalidate drops the entry for path. The file need not exist anymore when
// entries are keyed by filename.
func (a *app) invalidate(ctx context.Context, path string) error {
	name, data, err := a.loader.Load(ctx, path)
	if err != nil {
		if usecases.KeyPolicy(a.cfg.Cache.Key) == usecases.KeyByContent {
			return err
		}
		name, data = filepath.Base(path), nil
	}
	if err := a.ingest.Invalidate(ctx, name, data); err != nil {
		return err
	}
	log.Printf("[INFO] Invalidated cache entry for %s", name)
	return nil
}
