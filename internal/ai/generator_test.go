package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nyashahama/carefund-backend/internal/ai"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ ai.Request) (string, error) {
	s.calls++
	return s.text, s.err
}

// discardLogger returns a *slog.Logger that silently drops all log output.
// fallback.go calls f.logger.Warn(), which panics on a nil logger.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var req = ai.Request{System: "You are terse.", Prompt: "Say hi"}

// ─── FallbackGenerator ────────────────────────────────────────────────────────

func TestFallbackGenerator_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubGenerator{text: "primary"}
	secondary := &stubGenerator{text: "secondary"}

	gen := ai.NewFallbackGenerator(primary, secondary, discardLogger())

	got, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "primary" {
		t.Errorf("expected primary result, got %q", got)
	}
	if primary.calls != 1 || secondary.calls != 0 {
		t.Errorf("calls: primary=%d secondary=%d, want 1/0", primary.calls, secondary.calls)
	}
}

func TestFallbackGenerator_PrimaryFails_SecondaryUsed(t *testing.T) {
	primary := &stubGenerator{err: errors.New("gemini timeout")}
	secondary := &stubGenerator{text: "secondary"}

	gen := ai.NewFallbackGenerator(primary, secondary, discardLogger())

	got, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "secondary" {
		t.Errorf("expected secondary result, got %q", got)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls: primary=%d secondary=%d, want 1/1", primary.calls, secondary.calls)
	}
}

func TestFallbackGenerator_BothFail_ReturnsError(t *testing.T) {
	gen := ai.NewFallbackGenerator(
		&stubGenerator{err: errors.New("primary error")},
		&stubGenerator{err: errors.New("secondary error")},
		discardLogger(),
	)
	if _, err := gen.Generate(context.Background(), req); err == nil {
		t.Fatal("expected error when both generators fail")
	}
}

func TestFallbackGenerator_NilPrimary_UsesSecondaryDirectly(t *testing.T) {
	secondary := &stubGenerator{text: "only secondary"}

	got, err := ai.NewFallbackGenerator(nil, secondary, discardLogger()).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "only secondary" || secondary.calls != 1 {
		t.Errorf("got %q after %d calls", got, secondary.calls)
	}
}

func TestFallbackGenerator_NilSecondary_PrimaryErrorBubbles(t *testing.T) {
	primaryErr := errors.New("primary blew up")

	_, err := ai.NewFallbackGenerator(&stubGenerator{err: primaryErr}, nil, discardLogger()).
		Generate(context.Background(), req)
	if !errors.Is(err, primaryErr) {
		t.Errorf("expected primaryErr in chain, got: %v", err)
	}
}

func TestFallbackGenerator_ExpiredContext_SkipsSecondary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	secondary := &stubGenerator{text: "late"}
	gen := ai.NewFallbackGenerator(&stubGenerator{err: context.Canceled}, secondary, discardLogger())

	if _, err := gen.Generate(ctx, req); err == nil {
		t.Fatal("expected error")
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not run once the deadline is spent, got %d calls", secondary.calls)
	}
}

func TestFallbackGenerator_NothingConfigured(t *testing.T) {
	if _, err := ai.NewFallbackGenerator(nil, nil, discardLogger()).Generate(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}
}

// ─── Provider clients ─────────────────────────────────────────────────────────

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	gen := ai.NewGeminiClient("g-key", "gemini-2.5-pro", ai.WithBaseURL(srv.URL))
	got, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello there" {
		t.Errorf("text = %q, want %q", got, "Hello there")
	}
	if gotPath != "/v1beta/models/gemini-2.5-pro:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "g-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if _, ok := gotBody["systemInstruction"]; !ok {
		t.Error("expected systemInstruction in request body")
	}
}

func TestGeminiClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	_, err := ai.NewGeminiClient("k", "m", ai.WithBaseURL(srv.URL)).Generate(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected quota error, got %v", err)
	}
}

func TestGeminiClient_EmptyCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`)
	}))
	defer srv.Close()

	_, err := ai.NewGeminiClient("k", "m", ai.WithBaseURL(srv.URL)).Generate(context.Background(), req)
	if !errors.Is(err, ai.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAnthropicClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "a-key" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"  narrative  "}]}`)
	}))
	defer srv.Close()

	got, err := ai.NewAnthropicClient("a-key", "claude", ai.WithBaseURL(srv.URL)).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "narrative" {
		t.Errorf("text = %q", got)
	}
}

func TestDeepSeekClient_Generate(t *testing.T) {
	var body struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer d-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"plan"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	got, err := ai.NewDeepSeekClient("d-key", "deepseek-chat", ai.WithBaseURL(srv.URL)).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plan" {
		t.Errorf("text = %q", got)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
		t.Errorf("expected system + user messages, got %+v", body.Messages)
	}
}

func TestClient_TimeoutHonoured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	gen := ai.NewGeminiClient("k", "m", ai.WithBaseURL(srv.URL), ai.WithTimeout(50*time.Millisecond))
	start := time.Now()
	if _, err := gen.Generate(context.Background(), req); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v, expected the client timeout to cut it short", elapsed)
	}
}
