// Package advisor relays a recognized person's profile and questions about
// them to a text generation backend.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/faceid/internal/constants"
)

// Advisor builds prompts from a profile and sends them to a Generator.
// It holds no per-person state between calls.
type Advisor struct {
	generator Generator
	prompts   *Prompts
	timeout   time.Duration
}

// New creates an Advisor. A zero timeout disables the per-call deadline.
func New(generator Generator, timeout time.Duration) (*Advisor, error) {
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, err
	}
	return &Advisor{generator: generator, prompts: prompts, timeout: timeout}, nil
}

// Provider returns the generator name, e.g. "gemini/gemini-2.5-flash".
func (a *Advisor) Provider() string {
	return a.generator.Name()
}

// Usage returns the token usage of the generator, if it tracks any.
func (a *Advisor) Usage() (Usage, bool) {
	if r, ok := a.generator.(UsageReporter); ok {
		return r.Usage(), true
	}
	return Usage{}, false
}

// Notify sends the priming prompt for profile. The reply is discarded.
func (a *Advisor) Notify(ctx context.Context, profile Profile) error {
	prompt, err := a.prompts.Priming(profile)
	if err != nil {
		return err
	}
	if _, err := a.generate(ctx, prompt); err != nil {
		return err
	}
	return nil
}

// Ask answers question about profile. Blank questions and empty profiles are
// rejected with ErrMissingParameter before anything is sent.
func (a *Advisor) Ask(ctx context.Context, profile Profile, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question", ErrMissingParameter)
	}
	if profile.Empty() {
		return "", fmt.Errorf("%w: userInfo", ErrMissingParameter)
	}

	prompt, err := a.prompts.Question(profile, question)
	if err != nil {
		return "", err
	}

	answer, err := a.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return constants.NoAnswer, nil
	}
	return answer, nil
}

func (a *Advisor) generate(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUpstream, a.generator.Name(), err)
	}
	return text, nil
}
