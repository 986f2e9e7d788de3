package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/faceid/internal/config"
)

// Generator produces a text completion for a single prompt. An empty string
// with a nil error means the backend answered without any text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Usage tracks token usage of a generator.
type Usage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
}

// UsageReporter is implemented by generators that count tokens.
type UsageReporter interface {
	Usage() Usage
}

type usageCounter struct {
	mu    sync.Mutex
	usage Usage
}

func (c *usageCounter) track(inputTokens, outputTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.Requests++
	c.usage.InputTokens += inputTokens
	c.usage.OutputTokens += outputTokens
}

func (c *usageCounter) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// NewGenerator creates the backend selected by cfg.Advisor.Provider.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.Advisor.Provider {
	case "gemini", "":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for the gemini advisor")
		}
		return NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN is required for the openai advisor")
		}
		return NewOpenAIGenerator(cfg.OpenAI.Token, cfg.OpenAI.Model), nil
	default:
		return nil, fmt.Errorf("unknown advisor provider %q", cfg.Advisor.Provider)
	}
}
