package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("expected ollama provider, got %q", cfg.Provider)
	}
	if cfg.ChatModel() != "llama3.2:1b" || cfg.EmbedModel() != "nomic-embed-text" {
		t.Errorf("unexpected models %q / %q", cfg.ChatModel(), cfg.EmbedModel())
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.Dir != "embeddings" || cfg.Cache.Key != "filename" {
		t.Errorf("unexpected cache defaults %+v", cfg.Cache)
	}
	if cfg.Chat.TopK != 5 || cfg.Chat.MaxHistory != 5 {
		t.Errorf("unexpected chat defaults %+v", cfg.Chat)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.MaxUploadMB != 10 {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
}

func TestLoad_OverridesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	os.WriteFile(path, []byte(`
provider: openai
openai:
  chat_model: gpt-test
cache:
  backend: sqlite
  dir: /var/cache/docchat
  key: content
chat:
  top_k: 3
`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ChatModel() != "gpt-test" {
		t.Errorf("expected override, got %q", cfg.ChatModel())
	}
	if cfg.EmbedModel() != "text-embedding-3-small" {
		t.Errorf("expected default openai embed model, got %q", cfg.EmbedModel())
	}
	if cfg.OpenAI.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("expected default key env, got %q", cfg.OpenAI.APIKeyEnv)
	}
	if cfg.Cache.SQLitePath != filepath.Join("/var/cache/docchat", "cache.db") {
		t.Errorf("sqlite path should follow cache dir, got %q", cfg.Cache.SQLitePath)
	}
	if cfg.Chat.TopK != 3 || cfg.Chat.MaxHistory != 5 {
		t.Errorf("unexpected chat config %+v", cfg.Chat)
	}
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	tests := map[string]string{
		"provider":     "provider: anthropic\n",
		"backend":      "cache:\n  backend: redis\n",
		"key":          "cache:\n  key: inode\n",
		"postgres dsn": "cache:\n  backend: postgres\n",
		"invalid yaml": "provider: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "docchat.yaml")
			os.WriteFile(path, []byte(content), 0o644)
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Chat.SystemPrompt = "Be brief."
	cfg.Log.Debug = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "system_prompt: Be brief.") {
		t.Errorf("unexpected file content:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Chat.SystemPrompt != "Be brief." || !loaded.Log.Debug {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	os.WriteFile(filepath.Join(dir, "docchat.yaml"), []byte("chat:\n  top_k: 9\n"), 0o644)

	cfg, path, err := LoadDefault()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if path != "docchat.yaml" || cfg.Chat.TopK != 9 {
		t.Errorf("expected cwd config, got path %q top_k %d", path, cfg.Chat.TopK)
	}
}

func TestLoadDefault_NoFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := LoadDefault()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if path != "" || cfg.Provider != "ollama" {
		t.Errorf("expected defaults, got path %q provider %q", path, cfg.Provider)
	}
}
