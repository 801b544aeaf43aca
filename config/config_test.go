package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fabfab/policy-rag/config"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg := config.Load()

	if cfg.Embeddings.Provider != config.ProviderOllama {
		t.Fatalf("unexpected default embeddings provider: %q", cfg.Embeddings.Provider)
	}
	if cfg.Embeddings.Dimension != 768 {
		t.Fatalf("unexpected default dimension: %d", cfg.Embeddings.Dimension)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 200 || cfg.Chunking.BatchSize != 10 {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.OllamaHost != "http://localhost:11434" {
		t.Fatalf("unexpected default ollama host: %q", cfg.OllamaHost)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := "llm:\n  provider: openai\n  model: gpt-4o-mini\nchunking:\n  chunk_size: 500\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Load()

	if cfg.LLM.Provider != config.ProviderOpenAI || cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("yaml values not applied: %+v", cfg.LLM)
	}
	if cfg.Chunking.ChunkSize != 500 {
		t.Fatalf("yaml chunk size not applied: %d", cfg.Chunking.ChunkSize)
	}
	// Values the file leaves out keep their defaults.
	if cfg.Chunking.ChunkOverlap != 200 {
		t.Fatalf("default overlap lost: %d", cfg.Chunking.ChunkOverlap)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("chunking:\n  chunk_size: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHUNK_SIZE", "750")
	t.Setenv("POSTGRES_DSN", "postgres://db:5432/other")
	t.Setenv("EMBEDDINGS_DIMENSION", "not-a-number")

	cfg := config.Load()

	if cfg.Chunking.ChunkSize != 750 {
		t.Fatalf("environment should win over the file, got %d", cfg.Chunking.ChunkSize)
	}
	if cfg.PostgresDSN != "postgres://db:5432/other" {
		t.Fatalf("dsn override not applied: %q", cfg.PostgresDSN)
	}
	if cfg.Embeddings.Dimension != 768 {
		t.Fatalf("unparseable int override should be ignored, got %d", cfg.Embeddings.Dimension)
	}
}
