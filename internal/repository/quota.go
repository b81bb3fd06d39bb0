package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/infomap/infomap/internal/model"
	"github.com/infomap/infomap/internal/quota"
)

// incrementQuotaSQL returns no row when the count has already reached $3.
const incrementQuotaSQL = `
	INSERT INTO daily_quotas (user_id, quota_date, count, updated_at)
	SELECT $1, $2::date, 1, NOW()
	WHERE $3::int > 0
	ON CONFLICT (user_id, quota_date) DO UPDATE
	SET count = daily_quotas.count + 1, updated_at = NOW()
	WHERE daily_quotas.count < $3::int
	RETURNING count
`

// GetDailyCount returns the request count of userID on date, or 0 when no record exists.
func (r *Repository) GetDailyCount(ctx context.Context, userID int64, date string) (int, error) {
	query := `SELECT count FROM daily_quotas WHERE user_id = $1 AND quota_date = $2::date`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, date).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get daily count: %w", err)
	}
	return count, nil
}

// IncrementDailyCount atomically creates or increments the (userID, date)
// record and returns the new count. Returns quota.ErrExhausted, writing
// nothing, when the count is already at max.
func (r *Repository) IncrementDailyCount(ctx context.Context, userID int64, date string, max int) (int, error) {
	return incrementQuota(ctx, r.pool, userID, date, max)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func incrementQuota(ctx context.Context, q rowQuerier, userID int64, date string, max int) (int, error) {
	var count int
	if err := q.QueryRow(ctx, incrementQuotaSQL, userID, date, max).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, quota.ErrExhausted
		}
		return 0, fmt.Errorf("failed to increment daily count: %w", err)
	}
	return count, nil
}

// IncrementDailyCountWithHistory increments the daily count and appends the
// history record in a single transaction. Nothing is written on failure.
func (r *Repository) IncrementDailyCountWithHistory(ctx context.Context, userID int64, date string, max int, h *model.QueryHistory) (int, error) {
	news, stats, err := marshalHistoryPayload(h)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		c, err := incrementQuota(ctx, tx, userID, date, max)
		if err != nil {
			return err
		}
		count = c
		if _, err := tx.Exec(ctx, insertHistorySQL,
			h.ID, userID, h.Country, string(h.TimeFilter), string(h.Topic), news, stats, h.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return ErrHistoryExists
			}
			return fmt.Errorf("failed to insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func marshalHistoryPayload(h *model.QueryHistory) (news, stats []byte, err error) {
	items := h.News
	if items == nil {
		items = []model.NewsItem{}
	}
	news, err = json.Marshal(items)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode history news: %w", err)
	}
	if h.Stats != nil {
		stats, err = json.Marshal(h.Stats)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode history stats: %w", err)
		}
	}
	return news, stats, nil
}
