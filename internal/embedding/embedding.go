package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
)

// NewEmbedder creates the langchaingo embedder for the configured provider
func NewEmbedder(llmConfig *config.LLMConfig, batchSize int) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch llmConfig.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama: %w", err)
		}
		client = llm
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", llmConfig.Provider)
	}

	return embeddings.NewEmbedder(client, embeddings.WithBatchSize(batchSize))
}

// Service wraps an embedder with retries and caches query embeddings.
// It records the model name so indexes can be tied to the model that built them.
type Service struct {
	embedder embeddings.Embedder
	model    string
	attempts uint
	delay    time.Duration
	cache    *cache.Cache
}

var _ embeddings.Embedder = (*Service)(nil)

func NewService(embedder embeddings.Embedder, model string, attempts uint, ttl time.Duration) *Service {
	if attempts == 0 {
		attempts = 1
	}
	return &Service{
		embedder: embedder,
		model:    model,
		attempts: attempts,
		delay:    500 * time.Millisecond,
		cache:    cache.New(ttl, 2*ttl),
	}
}

func (s *Service) Model() string { return s.model }

func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.DoWithData(
		func() ([][]float32, error) { return s.embedder.EmbedDocuments(ctx, texts) },
		s.retryOptions(ctx, "documents")...,
	)
}

func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := s.model + "\x00" + text
	if v, ok := s.cache.Get(key); ok {
		return v.([]float32), nil
	}

	vec, err := retry.DoWithData(
		func() ([]float32, error) { return s.embedder.EmbedQuery(ctx, text) },
		s.retryOptions(ctx, "query")...,
	)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, vec)
	return vec, nil
}

func (s *Service) retryOptions(ctx context.Context, kind string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("kind", kind).Msg("Embedding call failed, retrying")
		}),
	}
}
