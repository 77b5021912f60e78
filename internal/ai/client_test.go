package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// statusServer answers every chat request with status and counts requests.
func statusServer(t *testing.T, status int, header http.Header, body any, hits *int32) *ipv4Server {
	t.Helper()
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(hits, 1)
		for k, vals := range header {
			for _, v := range vals {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func hiRequest() GenerateRequest {
	return GenerateRequest{Model: "gpt-4o-mini", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1}
}

func TestGenerateSuccess(t *testing.T) {
	var got GenerateRequest
	var auth string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("X-Request-Id", "req_ok")
		_ = json.NewEncoder(w).Encode(GenerateResponse{ID: "cmpl-1", Choices: []Choice{{Message: Message{Role: "assistant", Content: " hola "}}}})
	}))
	defer srv.Close()

	c := NewClient(ProviderOpenAI, "sk-test", 2*time.Second, srv.URL)
	resp, err := c.Generate(context.Background(), hiRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "hola" || resp.RequestID != "req_ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if auth != "Bearer sk-test" || got.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected request: auth=%q body=%+v", auth, got)
	}
}

func TestGenerateDoesNotRetry429(t *testing.T) {
	var hits int32
	srv := statusServer(t, http.StatusTooManyRequests, http.Header{"Retry-After": {"7"}},
		map[string]any{"error": map[string]any{"message": "rate limited"}}, &hits)
	defer srv.Close()

	c := NewClient(ProviderOpenAI, "test", 2*time.Second, srv.URL)
	_, err := c.Generate(context.Background(), hiRequest())
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("retry-after not captured: %v", rl.RetryAfter)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestGenerateDoesNotRetry5xx(t *testing.T) {
	var hits int32
	srv := statusServer(t, http.StatusBadGateway, nil, map[string]any{"error": map[string]any{"message": "upstream"}}, &hits)
	defer srv.Close()

	c := NewClient(ProviderOpenRouter, "test", 2*time.Second, srv.URL)
	_, err := c.Generate(context.Background(), hiRequest())
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %T: %v", err, err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestGenerate401IsAuthError(t *testing.T) {
	var hits int32
	srv := statusServer(t, http.StatusUnauthorized, nil, map[string]any{"error": map[string]any{"message": "Incorrect API key", "code": "invalid_api_key"}}, &hits)
	defer srv.Close()

	c := NewClient(ProviderOpenAI, "bad", 2*time.Second, srv.URL)
	_, err := c.Generate(context.Background(), hiRequest())
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if ae.Code != "invalid_api_key" {
		t.Fatalf("code not decoded: %+v", ae.APIError)
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	var hits int32
	srv := statusServer(t, http.StatusBadRequest, http.Header{"X-Request-Id": {"req_test_123"}},
		map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}}, &hits)
	defer srv.Close()

	c := NewClient(ProviderOpenAI, "test", 2*time.Second, srv.URL)
	_, err := c.Generate(context.Background(), hiRequest())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %T", err)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	c := NewOpenAIClient("", time.Second)
	if _, err := c.Generate(context.Background(), hiRequest()); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestGenerateUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewClient(ProviderOpenAI, "test", time.Second, "http://"+addr)
	_, err = c.Generate(context.Background(), hiRequest())
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
}

func TestGetRuntime(t *testing.T) {
	rt, err := GetRuntime("OpenAI", RuntimeConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("GetRuntime: %v", err)
	}
	if _, ok := rt.(*Client); !ok {
		t.Fatalf("expected *Client, got %T", rt)
	}
	if rt, err := GetRuntime("local", RuntimeConfig{}); err != nil {
		t.Fatalf("ollama alias: %v", err)
	} else if _, ok := rt.(*OllamaClient); !ok {
		t.Fatalf("expected *OllamaClient, got %T", rt)
	}
	if _, err := GetRuntime("gemini", RuntimeConfig{}); err == nil {
		t.Fatalf("expected gemini without key to fail")
	}
	if _, err := GetRuntime("watson", RuntimeConfig{}); err == nil || !strings.Contains(err.Error(), "openai") {
		t.Fatalf("expected unknown provider error listing providers, got %v", err)
	}
}
