package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/models"
)

// Generator produces a single completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type completionFunc func(ctx context.Context, prompt string) (string, error)

// Client calls a langchaingo model with a per call timeout and retries.
type Client struct {
	complete completionFunc
	timeout  time.Duration
	attempts uint
	delay    time.Duration
}

var thinkTagRe = regexp.MustCompile(models.ThinkTag)

// NewClient builds the model handle for the configured provider.
func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating LLM client")

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case config.ProviderOllama:
		llm, err = ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		err = fmt.Errorf("unsupported provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, err
	}

	callOpts := []llms.CallOption{}
	if llmConfig.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(llmConfig.Temperature))
	}
	complete := func(ctx context.Context, prompt string) (string, error) {
		messages := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		}
		resp, err := llm.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}
		return resp.Choices[0].Content, nil
	}
	return newClient(complete, llmConfig.Timeout, llmConfig.RetryAttempts), nil
}

func newClient(complete completionFunc, timeout time.Duration, attempts uint) *Client {
	if attempts == 0 {
		attempts = 1
	}
	return &Client{complete: complete, timeout: timeout, attempts: attempts, delay: time.Second}
}

// Generate returns the model's completion with reasoning blocks removed.
// An empty completion is an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := retry.DoWithData(
		func() (string, error) {
			callCtx, cancel := c.callContext(ctx)
			defer cancel()
			out, err := c.complete(callCtx, prompt)
			if err != nil {
				return "", err
			}
			out = cleanResponse(out)
			if strings.TrimSpace(out) == "" {
				return "", errors.New("empty completion")
			}
			return out, nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, context.Canceled) }),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("Generation failed, retrying")
		}),
	)
	if err != nil {
		return "", err
	}
	log.Debug().Dur("took", time.Since(start)).Int("prompt_len", len(prompt)).Int("response_len", len(text)).Msg("Generated content")
	return text, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// cleanResponse drops <think> blocks emitted by reasoning models, along with
// the whitespace that follows each block. Everything else is kept as is.
func cleanResponse(text string) string {
	return thinkTagRe.ReplaceAllString(text, "")
}
