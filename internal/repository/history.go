package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/infomap/infomap/internal/model"
)

// Common errors for history repository operations.
var (
	ErrHistoryNotFound = errors.New("history record not found")
	ErrHistoryExists   = errors.New("history record already exists")
)

const insertHistorySQL = `
	INSERT INTO query_history (id, user_id, country, time_filter, topic, news, stats, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// CreateHistory appends one history record.
func (r *Repository) CreateHistory(ctx context.Context, h *model.QueryHistory) error {
	news, stats, err := marshalHistoryPayload(h)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertHistorySQL,
		h.ID, h.UserID, h.Country, string(h.TimeFilter), string(h.Topic), news, stats, h.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrHistoryExists
		}
		return fmt.Errorf("failed to create history: %w", err)
	}
	return nil
}

// ListRecentHistory returns the user's records created after since, newest first.
func (r *Repository) ListRecentHistory(ctx context.Context, userID int64, since time.Time, limit int) ([]model.QueryHistory, error) {
	query := `
		SELECT id, user_id, country, time_filter, topic, news, stats, created_at
		FROM query_history
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := make([]model.QueryHistory, 0, limit)
	for rows.Next() {
		var (
			h          model.QueryHistory
			timeFilter string
			topic      string
			news       []byte
			stats      []byte
		)
		if err := rows.Scan(&h.ID, &h.UserID, &h.Country, &timeFilter, &topic, &news, &stats, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.TimeFilter = model.TimeFilter(timeFilter)
		h.Topic = model.Topic(topic)

		if err := json.Unmarshal(news, &h.News); err != nil {
			return nil, fmt.Errorf("failed to decode history news: %w", err)
		}
		if len(stats) > 0 {
			if err := json.Unmarshal(stats, &h.Stats); err != nil {
				return nil, fmt.Errorf("failed to decode history stats: %w", err)
			}
		}
		records = append(records, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}

// DeleteHistory removes one record owned by userID.
// Returns ErrHistoryNotFound when the record does not exist or belongs to someone else.
func (r *Repository) DeleteHistory(ctx context.Context, id string, userID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM query_history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrHistoryNotFound
	}

	return nil
}
