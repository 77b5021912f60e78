package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/finlens/internal/ai"
	"github.com/KaramelBytes/finlens/internal/logger"
	"github.com/KaramelBytes/finlens/internal/utils"
)

// Persona is the system message sent with every question.
const Persona = "Eres un financiero que trabaja para la consultora ABC experto en el área de solvencia, " +
	"entonces vas a responder todo desde la perspectiva de la consultora. " +
	"Contesta siempre en español en un máximo de 100 palabras."

// EmptyPromptMessage is shown instead of calling the assistant.
const EmptyPromptMessage = "Parece que no has hecho ninguna pregunta, intenta de nuevo."

var (
	// ErrEmptyPrompt is returned for empty or whitespace-only prompts.
	ErrEmptyPrompt = errors.New(EmptyPromptMessage)
	// ErrPromptTooLong is returned when a prompt exceeds the configured token budget.
	ErrPromptTooLong = errors.New("prompt too long")
	// ErrAssistantUnavailable matches every failed assistant call.
	ErrAssistantUnavailable = errors.New("assistant unavailable")
)

// Asker answers a free-text question.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Asker.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Ask(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// UnavailableError wraps the runtime failure behind an assistant call.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("assistant unavailable (%s): %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrAssistantUnavailable }

// Options configures a Gateway.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	// MaxPromptTokens rejects longer prompts before any call; 0 disables.
	MaxPromptTokens int
}

// Gateway sends single-shot questions to a runtime with the fixed persona.
type Gateway struct {
	rt   ai.Runtime
	opts Options
}

// NewGateway wraps rt. An empty model selects the provider default.
func NewGateway(rt ai.Runtime, opts Options) *Gateway {
	opts.Provider = ai.NormalizeProvider(opts.Provider)
	if opts.Model == "" {
		opts.Model = ai.DefaultModels[opts.Provider]
	}
	return &Gateway{rt: rt, opts: opts}
}

// Model reports the model the gateway sends requests to.
func (g *Gateway) Model() string { return g.opts.Model }

// Ask validates the prompt and forwards it once. Runtime failures come back
// as *UnavailableError.
func (g *Gateway) Ask(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if limit := g.opts.MaxPromptTokens; limit > 0 {
		if n := utils.CountTokens(prompt); n > limit {
			return "", fmt.Errorf("%w: ~%d tokens exceeds limit %d", ErrPromptTooLong, n, limit)
		}
	}
	log := logger.WithComponent("assistant").WithFields(logger.Fields{
		"provider": g.opts.Provider,
		"model":    g.opts.Model,
	})
	resp, err := g.rt.Generate(ctx, ai.GenerateRequest{
		Model: g.opts.Model,
		Messages: []ai.Message{
			{Role: "system", Content: Persona},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		log.WithError(err).Warn("assistant call failed")
		return "", &UnavailableError{Provider: g.opts.Provider, Err: err}
	}
	answer := resp.Text()
	if answer == "" {
		return "", &UnavailableError{Provider: g.opts.Provider, Err: errors.New("empty answer")}
	}
	log.WithFields(logger.Fields{
		"request_id":    resp.RequestID,
		"prompt_tokens": resp.Usage.PromptTokens,
		"total_tokens":  resp.Usage.TotalTokens,
	}).Debug("assistant answered")
	return answer, nil
}
