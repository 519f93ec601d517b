package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/domain"
)

// Completer sends a single prompt and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Client talks to an OpenAI-compatible chat endpoint such as DeepSeek.
type Client struct {
	model       llms.Model
	temperature float64
}

var _ Completer = (*Client)(nil)

// NewClient builds a client from configuration. Without an API key it
// returns domain.ErrNotConfigured.
func NewClient(cfg config.ClassifierConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier api key: %w", domain.ErrNotConfigured)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create classifier model: %w", err)
	}
	return &Client{model: model, temperature: cfg.Temperature}, nil
}

// Complete sends prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reply, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("generate: %w: %v", domain.ErrTransient, err)
		}
		return "", fmt.Errorf("generate: %w", err)
	}
	return reply, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
