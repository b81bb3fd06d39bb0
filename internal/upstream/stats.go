package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/infomap/infomap/internal/model"
)

const (
	// DefaultStatsURL is the REST Countries base URL.
	DefaultStatsURL = "https://restcountries.com"
	// DefaultStatsTimeout bounds one statistics lookup.
	DefaultStatsTimeout = 10 * time.Second

	notAvailable = "N/A"
	maxStatsBody = 1 << 20
)

// StatsFetcher looks up country statistics.
type StatsFetcher interface {
	// FetchStats returns nil when statistics are unavailable for any reason.
	FetchStats(ctx context.Context, country string) *model.CountryStats
}

// StatsClient queries the REST Countries v3.1 API.
type StatsClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewStatsClient creates a statistics client.
func NewStatsClient(baseURL string, timeout time.Duration, client *http.Client, logger *slog.Logger) *StatsClient {
	if baseURL == "" {
		baseURL = DefaultStatsURL
	}
	if timeout <= 0 {
		timeout = DefaultStatsTimeout
	}
	if client == nil {
		client = NewHTTPClient()
	}
	return &StatsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  client,
		logger:  logger.With("component", "upstream.stats"),
	}
}

type restCountry struct {
	Population *int64   `json:"population"`
	Region     string   `json:"region"`
	Subregion  string   `json:"subregion"`
	Capital    []string `json:"capital"`
	Flag       string   `json:"flag"`
}

// FetchStats implements StatsFetcher. Failures are logged and reported as nil.
func (c *StatsClient) FetchStats(ctx context.Context, country string) *model.CountryStats {
	stats, err := c.fetch(ctx, country)
	if err != nil {
		c.logger.Warn("country stats unavailable", "country", country, "error", err)
		return nil
	}
	return stats
}

func (c *StatsClient) fetch(ctx context.Context, country string) (*model.CountryStats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/v3.1/name/" + url.PathEscape(country) + "?fullText=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatsBody))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var countries []restCountry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStatsBody)).Decode(&countries); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(countries) == 0 {
		return nil, fmt.Errorf("no country matched %q", country)
	}

	return toStats(countries[0]), nil
}

func toStats(rc restCountry) *model.CountryStats {
	stats := &model.CountryStats{
		Region:    orNA(rc.Region),
		Subregion: orNA(rc.Subregion),
		Capital:   notAvailable,
		FlagEmoji: rc.Flag,
	}
	if rc.Population != nil {
		stats.Population = *rc.Population
	}
	if len(rc.Capital) > 0 && rc.Capital[0] != "" {
		stats.Capital = rc.Capital[0]
	}
	return stats
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
