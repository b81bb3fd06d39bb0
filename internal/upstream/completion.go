package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/infomap/infomap/internal/model"
)

const (
	// DefaultCompletionURL is the Perplexity chat completions endpoint.
	DefaultCompletionURL = "https://api.perplexity.ai/chat/completions"
	// DefaultCompletionModel is the model requested from the completion upstream.
	DefaultCompletionModel = "sonar-pro"
	// DefaultCompletionTimeout bounds one completion call.
	DefaultCompletionTimeout = 30 * time.Second

	completionTemperature = 0.1
	maxCompletionBody     = 4 << 20
)

// Completer produces the news completion for a query.
type Completer interface {
	Complete(ctx context.Context, q model.Query) (*Completion, error)
}

// CompletionConfig configures a CompletionClient.
type CompletionConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// CompletionClient calls an OpenAI-compatible chat completions endpoint.
type CompletionClient struct {
	cfg    CompletionConfig
	client *http.Client
	logger *slog.Logger
}

// NewCompletionClient creates a completion client.
func NewCompletionClient(cfg CompletionConfig, client *http.Client, logger *slog.Logger) *CompletionClient {
	if cfg.URL == "" {
		cfg.URL = DefaultCompletionURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCompletionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCompletionTimeout
	}
	if client == nil {
		client = NewHTTPClient()
	}
	return &CompletionClient{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "upstream.completion"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Completer. No retries are attempted.
func (c *CompletionClient) Complete(ctx context.Context, q model.Query) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	system, user := BuildPrompts(q)
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: completionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBody))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrUpstreamUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}

	content := chat.Choices[0].Message.Content
	completion, err := ParseCompletion(content)
	if err != nil {
		c.logger.Warn("completion parse failed",
			"country", q.Country,
			"topic", q.Topic,
			"snippet", snippet(content, 100),
			"error", err,
		)
		return nil, err
	}
	return completion, nil
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// PlaceholderCompleter returns canned items without any network call.
// It is used in development when no completion API key is configured.
type PlaceholderCompleter struct{}

// Complete implements Completer.
func (PlaceholderCompleter) Complete(_ context.Context, q model.Query) (*Completion, error) {
	titles := []string{"Event in " + q.Country, "Update for " + q.Country, "Developments", "Report", "News"}
	news := make([]model.NewsItem, len(titles))
	for i, t := range titles {
		news[i] = model.NewsItem{
			Title:     "[" + string(q.Topic) + "] " + t,
			Date:      fmt.Sprintf("2024-01-%02d", 22-i),
			SourceURL: fmt.Sprintf("https://example.com/%d", i+1),
		}
	}
	return &Completion{
		News:        news,
		Trends:      []string{"#Stability", "#Growth", "#Innovation"},
		Placeholder: true,
	}, nil
}
