package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient adapts the Gemini API to Runtime.
type GeminiClient struct {
	models *genai.Models
}

// NewGeminiClient builds a Gemini API client.
func NewGeminiClient(apiKey string, httpTimeout time.Duration) (*GeminiClient, error) {
	return newGeminiClient(apiKey, httpTimeout, "")
}

// newGeminiClient allows pointing the client at another endpoint; an empty
// baseURL keeps the SDK default.
func newGeminiClient(apiKey string, httpTimeout time.Duration, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is missing (set FINLENS_API_KEY)")
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: httpTimeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{models: client.Models}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	var contents []*genai.Content
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	out := &GenerateResponse{
		ID:        resp.ResponseID,
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: resp.Text()}}},
		RequestID: resp.ResponseID,
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// mapGeminiError converts genai API errors into this package's typed errors.
func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var p *genai.APIError
		if !errors.As(err, &p) || p == nil {
			return &UnreachableError{Host: "generativelanguage.googleapis.com", Err: err}
		}
		apiErr = *p
	}
	base := &APIError{StatusCode: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message}
	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return &AuthError{APIError: base}
	case apiErr.Code == http.StatusTooManyRequests:
		return &RateLimitError{APIError: base}
	case apiErr.Code == http.StatusNotFound:
		return &ModelNotFoundError{APIError: base}
	case apiErr.Code == http.StatusBadRequest:
		return &BadRequestError{APIError: base}
	case apiErr.Code >= 500:
		return &ServerError{APIError: base}
	}
	return base
}
