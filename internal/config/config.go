package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docqa/internal/models"
)

const (
	EnvPrefix = "DOCQA_"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	SplitterWindow    = "window"
	SplitterRecursive = "recursive"
)

type Config struct {
	EmbedLLM     LLMConfig     `yaml:"embed_llm" envPrefix:"EMBED_"`
	InferenceLLM LLMConfig     `yaml:"inference_llm" envPrefix:"LLM_"`
	RAG          RAGConfig     `yaml:"rag" envPrefix:"RAG_"`
	Budgets      BudgetConfig  `yaml:"budgets" envPrefix:"BUDGET_"`
	Session      SessionConfig `yaml:"session" envPrefix:"SESSION_"`
	Log          LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// LLMConfig describes one model endpoint, used for both embedding and inference.
type LLMConfig struct {
	Provider      string        `yaml:"provider" env:"PROVIDER"`
	BaseURL       string        `yaml:"base_url" env:"BASE_URL"`
	Model         string        `yaml:"model" env:"MODEL"`
	Key           string        `yaml:"key" env:"KEY"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RetryAttempts uint          `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	Temperature   float64       `yaml:"temperature" env:"TEMPERATURE"`
}

type RAGConfig struct {
	ChunkSize      int           `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap   int           `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	Splitter       string        `yaml:"splitter" env:"SPLITTER"`
	TopK           int           `yaml:"top_k" env:"TOP_K"`
	IndexPath      string        `yaml:"index_path" env:"INDEX_PATH"`
	EncryptionKey  string        `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	Compress       bool          `yaml:"compress" env:"COMPRESS"`
	EmbedBatchSize int           `yaml:"embed_batch_size" env:"EMBED_BATCH_SIZE"`
	QueryCacheTTL  time.Duration `yaml:"query_cache_ttl" env:"QUERY_CACHE_TTL"`
}

// BudgetConfig holds the character budgets of the bulk generation tasks.
type BudgetConfig struct {
	Suggestions int `yaml:"suggestions" env:"SUGGESTIONS"`
	Summary     int `yaml:"summary" env:"SUMMARY"`
	Keywords    int `yaml:"keywords" env:"KEYWORDS"`
	ConceptMap  int `yaml:"concept_map" env:"CONCEPT_MAP"`
	Timeline    int `yaml:"timeline" env:"TIMELINE"`
}

type SessionConfig struct {
	Role         string   `yaml:"role" env:"ROLE"`
	Language     string   `yaml:"language" env:"LANGUAGE"`
	Roles        []string `yaml:"roles"`
	NumQuestions int      `yaml:"num_questions" env:"NUM_QUESTIONS"`
	NumKeywords  int      `yaml:"num_keywords" env:"NUM_KEYWORDS"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// LoadConfig reads the yaml file at path (a missing file is not an error),
// applies .env and DOCQA_* environment overrides and fills defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	applyLLMDefaults(&c.EmbedLLM, "nomic-embed-text")
	applyLLMDefaults(&c.InferenceLLM, "gemma:2b")

	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = models.DefaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = models.DefaultChunkOverlap
	}
	if c.RAG.Splitter == "" {
		c.RAG.Splitter = SplitterWindow
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = models.DefaultTopK
	}
	if c.RAG.IndexPath == "" {
		c.RAG.IndexPath = "./vectordb/index.gob"
	}
	if c.RAG.EmbedBatchSize == 0 {
		c.RAG.EmbedBatchSize = 32
	}
	if c.RAG.QueryCacheTTL == 0 {
		c.RAG.QueryCacheTTL = 10 * time.Minute
	}

	if c.Budgets.Suggestions == 0 {
		c.Budgets.Suggestions = models.SuggestionsBudget
	}
	if c.Budgets.Summary == 0 {
		c.Budgets.Summary = models.SummaryBudget
	}
	if c.Budgets.Keywords == 0 {
		c.Budgets.Keywords = models.KeywordsBudget
	}
	if c.Budgets.ConceptMap == 0 {
		c.Budgets.ConceptMap = models.ConceptMapBudget
	}
	if c.Budgets.Timeline == 0 {
		c.Budgets.Timeline = models.TimelineBudget
	}

	if c.Session.Language == "" {
		c.Session.Language = "tr"
	}
	if len(c.Session.Roles) == 0 {
		c.Session.Roles = []string{"Teacher", "Student", "Lawyer", "Doctor", "Software Engineer", "Researcher"}
	}
	if c.Session.NumQuestions == 0 {
		c.Session.NumQuestions = models.DefaultNumQuestions
	}
	if c.Session.NumKeywords == 0 {
		c.Session.NumKeywords = models.DefaultNumKeywords
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func applyLLMDefaults(l *LLMConfig, model string) {
	if l.Provider == "" {
		l.Provider = ProviderOllama
	}
	if l.BaseURL == "" && l.Provider == ProviderOllama {
		l.BaseURL = "http://localhost:11434"
	}
	if l.Model == "" {
		l.Model = model
	}
	if l.Timeout == 0 {
		l.Timeout = 5 * time.Minute
	}
	if l.RetryAttempts == 0 {
		l.RetryAttempts = 3
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	for name, l := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "inference_llm": c.InferenceLLM} {
		if l.Provider != ProviderOllama && l.Provider != ProviderOpenAI {
			return fmt.Errorf("%s: unsupported provider %q", name, l.Provider)
		}
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.Splitter != SplitterWindow && c.RAG.Splitter != SplitterRecursive {
		return fmt.Errorf("rag.splitter: unsupported splitter %q", c.RAG.Splitter)
	}
	if c.RAG.Compress && !strings.HasSuffix(c.RAG.IndexPath, ".gz") {
		return fmt.Errorf("rag.index_path must end in .gz when rag.compress is set, got %q", c.RAG.IndexPath)
	}
	if c.RAG.EncryptionKey != "" && len(c.RAG.EncryptionKey) != 32 {
		return fmt.Errorf("rag.encryption_key must be 32 bytes, got %d", len(c.RAG.EncryptionKey))
	}
	return nil
}
