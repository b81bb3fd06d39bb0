package upstream

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

	"github.com/infomap/infomap/internal/model"
)

func newTestCompletionClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *CompletionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCompletionClient(CompletionConfig{
		URL:     srv.URL,
		APIKey:  "pplx-test",
		Timeout: timeout,
	}, srv.Client(), logger)
}

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestCompletionClient_Success(t *testing.T) {
	t.Parallel()

	var got chatRequest
	var auth string
	client := newTestCompletionClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = io.WriteString(w, chatBody("```json\n{\"news\":[{\"titre\":\"A\",\"date\":\"d\",\"source_url\":\"u\"}],\"trends\":[\"#x\"]}\n```"))
	}, time.Second)

	c, err := client.Complete(context.Background(), model.NewQuery("France", "24h", "Economy"))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(c.News) != 1 || c.News[0].Title != "A" {
		t.Errorf("unexpected news: %+v", c.News)
	}
	if auth != "Bearer pplx-test" {
		t.Errorf("unexpected Authorization header %q", auth)
	}
	if got.Model != DefaultCompletionModel || got.Temperature != completionTemperature {
		t.Errorf("unexpected request model/temperature: %s %v", got.Model, got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[1].Content, "France") {
		t.Errorf("user message should mention the country: %q", got.Messages[1].Content)
	}
}

func TestCompletionClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"refusal", http.StatusOK, chatBody("I am unable to find reliable news on this topic."), ErrNoSignal},
		{"malformed json", http.StatusOK, chatBody(`{"news": [`), ErrMalformedResponse},
		{"empty choices", http.StatusOK, `{"choices": []}`, ErrMalformedResponse},
		{"bad envelope", http.StatusOK, `<html>`, ErrUpstreamUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, ErrUpstreamUnavailable},
		{"server error", http.StatusBadGateway, ``, ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestCompletionClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, time.Second)

			_, err := client.Complete(context.Background(), model.NewQuery("France", "24h", "General"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Complete error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompletionClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client := newTestCompletionClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := client.Complete(context.Background(), model.NewQuery("France", "24h", "General"))
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestCompletionClient_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewCompletionClient(CompletionConfig{URL: url, APIKey: "k", Timeout: time.Second}, nil, logger)

	_, err := client.Complete(context.Background(), model.NewQuery("France", "24h", "General"))
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestPlaceholderCompleter(t *testing.T) {
	t.Parallel()

	c, err := PlaceholderCompleter{}.Complete(context.Background(), model.NewQuery("Peru", "7d", "Tech"))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !c.Placeholder {
		t.Error("expected placeholder flag")
	}
	if len(c.News) != 5 {
		t.Fatalf("expected 5 items, got %d", len(c.News))
	}
	if c.News[0].Title != "[Tech] Event in Peru" {
		t.Errorf("unexpected first title %q", c.News[0].Title)
	}
	if len(c.Trends) == 0 {
		t.Error("expected placeholder trends")
	}
}
