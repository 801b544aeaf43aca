// Package config loads runtime configuration from an optional config.yaml,
// an optional .env file, and environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type EmbeddingsConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ChunkingConfig carries the default ingestion parameters. Callers may still
// override them per ingestion call.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
}

type Config struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	Neo4jURI    string `yaml:"neo4j_uri"`
	Neo4jUser   string `yaml:"neo4j_user"`
	Neo4jPass   string `yaml:"-"`

	OllamaHost    string `yaml:"ollama_host"`
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LLM        LLMConfig        `yaml:"llm"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
}

// Load builds the configuration. A missing config.yaml or .env is not an
// error; credentials are only ever read from the environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaults()
	if err := applyFile(&cfg, "config.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "config.yaml ignored: %v\n", err)
	}
	applyEnv(&cfg)
	return cfg
}

func defaults() Config {
	return Config{
		PostgresDSN: "postgres://localhost:5432/policy-rag?sslmode=disable",
		Neo4jURI:    "neo4j://localhost:7687",
		Neo4jUser:   "neo4j",
		Neo4jPass:   "password",
		OllamaHost:  "http://localhost:11434",
		Embeddings: EmbeddingsConfig{
			Provider:  ProviderOllama,
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		LLM: LLMConfig{
			Provider: ProviderOllama,
			Model:    "llama3.1",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			BatchSize:    10,
		},
	}
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	setString(&cfg.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.Neo4jURI, "NEO4J_URI")
	setString(&cfg.Neo4jUser, "NEO4J_USERNAME")
	setString(&cfg.Neo4jPass, "NEO4J_PASSWORD")
	setString(&cfg.OllamaHost, "OLLAMA_HOST")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Embeddings.Provider, "EMBEDDINGS_PROVIDER")
	setString(&cfg.Embeddings.Model, "EMBEDDINGS_MODEL")
	setInt(&cfg.Embeddings.Dimension, "EMBEDDINGS_DIMENSION")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setInt(&cfg.Chunking.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Chunking.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&cfg.Chunking.BatchSize, "INGEST_BATCH_SIZE")
}

func setString(dst *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*dst = parsed
	}
}
