package ai

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) (Runtime, error)

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	// Hosted providers
	APIKey string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	f, ok := registry[NormalizeProvider(name)]
	if !ok {
		return nil, fmt.Errorf("unknown assistant provider %q (available: %s)", name, strings.Join(Providers(), ", "))
	}
	return f(cfg)
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func init() {
	RegisterRuntime(ProviderOpenAI, func(c RuntimeConfig) (Runtime, error) {
		base := c.BaseURL
		if base == "" {
			base = openAIBaseURL
		}
		return NewClient(ProviderOpenAI, c.APIKey, c.HTTPTimeout, base), nil
	})
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) (Runtime, error) {
		base := c.BaseURL
		if base == "" {
			base = openRouterBaseURL
		}
		return NewClient(ProviderOpenRouter, c.APIKey, c.HTTPTimeout, base), nil
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) (Runtime, error) {
		return NewOllamaClient(c.Host, c.HTTPTimeout), nil
	})
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) (Runtime, error) {
		return NewGeminiClient(c.APIKey, c.HTTPTimeout)
	})
}
