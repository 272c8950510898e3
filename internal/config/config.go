// Package config loads the docchat YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// OllamaConfig holds connection details for a local Ollama instance.
type OllamaConfig struct {
	BaseURL    string `yaml:"base_url"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
}

// OpenAIConfig holds connection details for an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
}

// CacheConfig selects and configures the embedding cache backend.
type CacheConfig struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Key         string `yaml:"key"`
}

// ChatConfig bounds the prompt sent to the model.
type ChatConfig struct {
	TopK         int    `yaml:"top_k"`
	MaxHistory   int    `yaml:"max_history"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// WatchConfig configures the cache invalidation watcher.
type WatchConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Provider string       `yaml:"provider"`
	Ollama   OllamaConfig `yaml:"ollama"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Cache    CacheConfig  `yaml:"cache"`
	Chat     ChatConfig   `yaml:"chat"`
	Server   ServerConfig `yaml:"server"`
	Watch    WatchConfig  `yaml:"watch"`
	Log      LogConfig    `yaml:"log"`
}

var (
	providers     = []string{"ollama", "openai"}
	cacheBackends = []string{"file", "sqlite", "postgres", "memory"}
	cacheKeys     = []string{"filename", "content"}
)

// Load reads a config from path. If the file does not exist, it returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./docchat.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists it returns defaults along with an empty path.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docchat.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}

	userPath, err := defaultUserConfigPath()
	if err != nil {
		return Default(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown enumerated values.
func (c *AppConfig) Validate() error {
	if !slices.Contains(providers, c.Provider) {
		return fmt.Errorf("unknown provider %q (want one of %v)", c.Provider, providers)
	}
	if !slices.Contains(cacheBackends, c.Cache.Backend) {
		return fmt.Errorf("unknown cache backend %q (want one of %v)", c.Cache.Backend, cacheBackends)
	}
	if !slices.Contains(cacheKeys, c.Cache.Key) {
		return fmt.Errorf("unknown cache key %q (want one of %v)", c.Cache.Key, cacheKeys)
	}
	if c.Cache.Backend == "postgres" && c.Cache.PostgresDSN == "" {
		return errors.New("cache.postgres_dsn is required for the postgres backend")
	}
	return nil
}

// ChatModel returns the chat model of the selected provider.
func (c *AppConfig) ChatModel() string {
	if c.Provider == "openai" {
		return c.OpenAI.ChatModel
	}
	return c.Ollama.ChatModel
}

// EmbedModel returns the embedding model of the selected provider.
func (c *AppConfig) EmbedModel() string {
	if c.Provider == "openai" {
		return c.OpenAI.EmbedModel
	}
	return c.Ollama.EmbedModel
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Provider == "" {
		cfg.Provider = "ollama"
	}

	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.ChatModel == "" {
		cfg.Ollama.ChatModel = "llama3.2:1b"
	}
	if cfg.Ollama.EmbedModel == "" {
		cfg.Ollama.EmbedModel = "nomic-embed-text"
	}

	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbedModel == "" {
		cfg.OpenAI.EmbedModel = "text-embedding-3-small"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "embeddings"
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = filepath.Join(cfg.Cache.Dir, "cache.db")
	}
	if cfg.Cache.Key == "" {
		cfg.Cache.Key = "filename"
	}

	if cfg.Chat.TopK <= 0 {
		cfg.Chat.TopK = 5
	}
	if cfg.Chat.MaxHistory <= 0 {
		cfg.Chat.MaxHistory = 5
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 10
	}

	if cfg.Watch.Dir == "" {
		cfg.Watch.Dir = "."
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".txt", ".md", ".markdown", ".pdf"}
	}
}
