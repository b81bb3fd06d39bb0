// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/infomap/infomap/internal/metrics"
	"github.com/infomap/infomap/internal/model"
	"github.com/infomap/infomap/internal/quota"
	"github.com/infomap/infomap/internal/upstream"
)

// MaxCountryLength bounds the country path parameter.
const MaxCountryLength = 100

// NewsCache is the response cache used by the news gate.
type NewsCache interface {
	Get(ctx context.Context, key string) (*model.NewsPayload, bool, error)
	Put(ctx context.Context, key string, payload *model.NewsPayload) error
	Delete(ctx context.Context, key string) error
}

// Ledger is the per-user daily request counter.
type Ledger interface {
	Today() string
	HasRemaining(ctx context.Context, user *model.User, date string) (bool, int, error)
	Record(ctx context.Context, user *model.User, date string, h *model.QueryHistory) (int, error)
}

// NewsRequest is one news query made by an authenticated user.
type NewsRequest struct {
	User       *model.User
	Country    string
	TimeFilter string
	Topic      string
}

// NewsResult is the answer to a NewsRequest.
type NewsResult struct {
	Query     model.Query
	Payload   model.NewsPayload
	FromCache bool
	// Quota is the caller's count after this request. Nil when served from cache.
	Quota *int
	// Placeholder is set when the completion was generated locally. Nothing was recorded.
	Placeholder bool
}

// NewsService decides, for each request, whether to serve from cache,
// reject for quota, or fetch upstream and record the result.
type NewsService struct {
	cache         NewsCache
	ledger        Ledger
	stats         upstream.StatsFetcher
	completer     upstream.Completer
	metrics       metrics.Recorder
	logger        *slog.Logger
	recordHistory bool
	now           func() time.Time
}

// NewNewsService creates a new NewsService.
func NewNewsService(
	cache NewsCache,
	ledger Ledger,
	stats upstream.StatsFetcher,
	completer upstream.Completer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *NewsService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &NewsService{
		cache:         cache,
		ledger:        ledger,
		stats:         stats,
		completer:     completer,
		metrics:       recorder,
		logger:        logger.With("component", "service.news"),
		recordHistory: true,
		now:           time.Now,
	}
}

// WithoutHistory disables history records.
func (s *NewsService) WithoutHistory() *NewsService {
	s.recordHistory = false
	return s
}

// ValidateCountry trims country and rejects empty and placeholder values.
func ValidateCountry(country string) (string, error) {
	country = strings.TrimSpace(country)
	switch strings.ToLower(country) {
	case "", "undefined", "null":
		return "", ErrInvalidCountry
	}
	if len(country) > MaxCountryLength || strings.ContainsAny(country, "_/\\\x00\n\r\t") {
		return "", ErrInvalidCountry
	}
	return country, nil
}

// GetNews runs the gate for req.
func (s *NewsService) GetNews(ctx context.Context, req NewsRequest) (*NewsResult, error) {
	country, err := ValidateCountry(req.Country)
	if err != nil {
		return nil, err
	}
	q := model.NewQuery(country, req.TimeFilter, req.Topic)
	key := q.CacheKey()
	log := s.logger.With(
		"country", q.Country,
		"time_filter", q.TimeFilter,
		"topic", q.Topic,
		"user_id", req.User.ID,
	)

	// Cache check
	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("news cache read failed, treating as miss", "error", err)
	}
	if hit {
		s.metrics.IncNewsCacheHit()
		log.Info("news cache hit")
		return &NewsResult{Query: q, Payload: *cached, FromCache: true}, nil
	}
	s.metrics.IncNewsCacheMiss()

	// Quota check
	date := s.ledger.Today()
	ok, count, err := s.ledger.HasRemaining(ctx, req.User, date)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !ok {
		s.metrics.IncQuotaRejected()
		log.Info("news quota exceeded", "count", count, "max", req.User.MaxDailyQuota)
		return nil, ErrQuotaExceeded
	}

	// Fetching
	log.Info("calling completion upstream", "count", count, "max", req.User.MaxDailyQuota)
	stats, completion, err := s.fetch(ctx, q)
	if err != nil {
		log.Warn("completion upstream failed", "error", err)
		return nil, err
	}

	payload := model.NewsPayload{News: completion.News, Trends: completion.Trends, Stats: stats}
	if completion.Placeholder {
		return &NewsResult{Query: q, Payload: payload, Quota: &count, Placeholder: true}, nil
	}

	// Recording
	newCount, err := s.record(ctx, log, req.User, date, q, &payload)
	if err != nil {
		return nil, err
	}
	s.metrics.IncNewsRecorded()
	log.Info("news recorded", "count", newCount)

	return &NewsResult{Query: q, Payload: payload, Quota: &newCount}, nil
}

// fetch runs both upstream calls concurrently. A stats failure degrades to nil.
func (s *NewsService) fetch(ctx context.Context, q model.Query) (*model.CountryStats, *upstream.Completion, error) {
	var (
		stats      *model.CountryStats
		completion *upstream.Completion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		stats = s.stats.FetchStats(gctx, q.Country)
		s.metrics.ObserveUpstreamDuration(metrics.UpstreamStats, time.Since(start))
		if stats == nil {
			s.metrics.IncUpstreamFailure(metrics.UpstreamStats, "unavailable")
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		c, err := s.completer.Complete(gctx, q)
		s.metrics.ObserveUpstreamDuration(metrics.UpstreamCompletion, time.Since(start))
		if err != nil {
			s.metrics.IncUpstreamFailure(metrics.UpstreamCompletion, failureKind(err))
			return err
		}
		completion = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stats, completion, nil
}

// record writes the cache entry, then the quota increment and history in one
// transaction. If the transaction fails the cache entry is removed again.
func (s *NewsService) record(ctx context.Context, log *slog.Logger, user *model.User, date string, q model.Query, payload *model.NewsPayload) (int, error) {
	key := q.CacheKey()
	if err := s.cache.Put(ctx, key, payload); err != nil {
		s.metrics.IncRecordFailed()
		return 0, fmt.Errorf("write news cache: %w", err)
	}

	var h *model.QueryHistory
	if s.recordHistory {
		h = &model.QueryHistory{
			ID:         ulid.Make().String(),
			UserID:     user.ID,
			Country:    q.Country,
			TimeFilter: q.TimeFilter,
			Topic:      q.Topic,
			News:       payload.News,
			Stats:      payload.Stats,
			CreatedAt:  s.now().UTC(),
		}
	}

	count, err := s.ledger.Record(ctx, user, date, h)
	if err != nil {
		// The request context may already be cancelled.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if delErr := s.cache.Delete(cleanupCtx, key); delErr != nil {
			log.Error("failed to roll back news cache entry", "error", delErr)
		}
		if errors.Is(err, quota.ErrExhausted) {
			// A concurrent request used the last slot after our check.
			s.metrics.IncQuotaRejected()
			log.Info("news quota exceeded", "stage", "record", "max", user.MaxDailyQuota)
			return 0, ErrQuotaExceeded
		}
		s.metrics.IncRecordFailed()
		return 0, fmt.Errorf("record query: %w", err)
	}
	return count, nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, upstream.ErrNoSignal):
		return "no_signal"
	case errors.Is(err, upstream.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, upstream.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
