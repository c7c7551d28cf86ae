package claude

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"podknow/internal/services"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL, Model: "claude-sonnet-4-20250514"}, nil,
		WithSleeper(func(time.Duration) {}),
		WithRetryBackoff(time.Millisecond, time.Millisecond))
}

func okResponse(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return string(payload)
}

func TestCompleteSuccess(t *testing.T) {
	var gotVersion, gotKey string
	var gotBody messageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		_, _ = w.Write([]byte(okResponse("The episode covers compilers.")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	text, err := client.Complete(context.Background(), "You summarize podcasts.", "Summarize this.")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "The episode covers compilers." {
		t.Fatalf("text = %q", text)
	}
	if gotVersion != apiVersion {
		t.Fatalf("anthropic-version = %q", gotVersion)
	}
	if gotKey != "test-key" {
		t.Fatalf("x-api-key = %q", gotKey)
	}
	if gotBody.System != "You summarize podcasts." {
		t.Fatalf("system prompt = %q", gotBody.System)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", gotBody.Messages)
	}
}

func TestCompleteJoinsTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "part one "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "part two"},
			},
		})
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL).Complete(context.Background(), "", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if text != "part one part two" {
		t.Fatalf("text = %q", text)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(okResponse("ok")))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"}, nil,
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(time.Millisecond, time.Minute))

	if _, err := client.Complete(context.Background(), "", "hi"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	for _, d := range slept {
		if d != time.Second {
			t.Fatalf("Retry-After not honored, slept %v", d)
		}
	}
}

func TestCompleteRetryCeiling(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if attempts != maxAttempts {
		t.Fatalf("attempts = %d, want %d", attempts, maxAttempts)
	}
	perr, ok := services.AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Kind != services.KindServerError {
		t.Fatalf("kind = %s", perr.Kind)
	}
}

func TestCompleteBadRequestNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"prompt too long"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), "", "hi")
	perr, ok := services.AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Kind != services.KindBadRequest {
		t.Fatalf("kind = %s", perr.Kind)
	}
	if perr.Message != "prompt too long" {
		t.Fatalf("message = %q", perr.Message)
	}
	if attempts != 1 {
		t.Fatalf("bad request must not be retried, got %d attempts", attempts)
	}
}

func TestCompleteModelMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"not_found_error","message":"model: no-such-model"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), "", "hi")
	perr, ok := services.AsProviderError(err)
	if !ok || perr.Kind != services.KindModelMissing {
		t.Fatalf("expected model_missing, got %v", err)
	}
}

func TestCompleteMissingAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "m"}, nil)
	_, err := client.Complete(context.Background(), "", "hi")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompleteUnreachable(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.Complete(context.Background(), "", "hi")
	perr, ok := services.AsProviderError(err)
	if !ok || perr.Kind != services.KindUnreachable {
		t.Fatalf("expected unreachable, got %v", err)
	}
}
