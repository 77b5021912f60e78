package ai

import "context"

// Runtime is implemented by every chat backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted in configuration.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
)

// DefaultModels is the fixed model used per provider when none is configured.
var DefaultModels = map[string]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderOllama:     "llama3.1:8b",
	ProviderGemini:     "gemini-2.0-flash",
}

// NormalizeProvider maps aliases to a provider identifier. Unknown names are
// returned lower-cased so the registry lookup reports them.
func NormalizeProvider(name string) string {
	switch n := lower(name); n {
	case "", "openai", "oai":
		return ProviderOpenAI
	case "openrouter", "or":
		return ProviderOpenRouter
	case "ollama", "local":
		return ProviderOllama
	case "gemini", "google":
		return ProviderGemini
	default:
		return n
	}
}
