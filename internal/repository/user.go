package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/infomap/infomap/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrInvalidEmail = errors.New("invalid email")
)

const userColumns = `id, email, is_admin, is_active, max_daily_quota, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.IsAdmin,
		&user.IsActive,
		&user.MaxDailyQuota,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetOrCreateUser retrieves a user by email or creates an inactive one with
// the given daily quota. Concurrent calls for the same email yield one row.
func (r *Repository) GetOrCreateUser(ctx context.Context, email string, maxDailyQuota int) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	insert := `
		INSERT INTO users (email, is_admin, is_active, max_daily_quota)
		VALUES ($1, FALSE, FALSE, $2)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, email, maxDailyQuota); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.GetUserByEmail(ctx, email)
}

// UpsertAdmin creates or promotes the user to an active administrator with the given quota.
func (r *Repository) UpsertAdmin(ctx context.Context, email string, maxDailyQuota int) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	query := `
		INSERT INTO users (email, is_admin, is_active, max_daily_quota)
		VALUES ($1, TRUE, TRUE, $2)
		ON CONFLICT (email) DO UPDATE
		SET is_admin = TRUE, is_active = TRUE, max_daily_quota = EXCLUDED.max_daily_quota, updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, email, maxDailyQuota))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert admin: %w", err)
	}
	return user, nil
}

// CreateUsers inserts the given emails in one statement, leaving existing
// users untouched. Returns the emails that were actually created.
func (r *Repository) CreateUsers(ctx context.Context, emails []string, maxDailyQuota int, isActive bool) ([]string, error) {
	normalized := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = NormalizeEmail(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO users (email, is_admin, is_active, max_daily_quota)
		SELECT e, FALSE, $2, $3 FROM unnest($1::text[]) AS e
		ON CONFLICT (email) DO NOTHING
		RETURNING email
	`

	rows, err := r.pool.Query(ctx, query, pq.Array(normalized), isActive, maxDailyQuota)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	defer rows.Close()

	created := make([]string, 0, len(normalized))
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan created user: %w", err)
		}
		created = append(created, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating created users: %w", err)
	}

	return created, nil
}

// ListUsersWithUsage returns all users with their request count on date.
func (r *Repository) ListUsersWithUsage(ctx context.Context, date string) ([]model.UserWithUsage, error) {
	query := `
		SELECT u.id, u.email, u.is_admin, u.is_active, u.max_daily_quota, u.created_at, u.updated_at,
		       COALESCE(q.count, 0)
		FROM users u
		LEFT JOIN daily_quotas q ON q.user_id = u.id AND q.quota_date = $1::date
		ORDER BY u.created_at ASC, u.id ASC
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.UserWithUsage
	for rows.Next() {
		u := model.UserWithUsage{Date: date}
		if err := rows.Scan(
			&u.ID,
			&u.Email,
			&u.IsAdmin,
			&u.IsActive,
			&u.MaxDailyQuota,
			&u.CreatedAt,
			&u.UpdatedAt,
			&u.TodayCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SetMaxDailyQuota updates the daily quota of the user with email.
func (r *Repository) SetMaxDailyQuota(ctx context.Context, email string, maxDailyQuota int) (*model.User, error) {
	query := `
		UPDATE users SET max_daily_quota = $2, updated_at = NOW()
		WHERE email = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, NormalizeEmail(email), maxDailyQuota))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set daily quota: %w", err)
	}
	return user, nil
}

// SetActive activates or deactivates the user with email.
func (r *Repository) SetActive(ctx context.Context, email string, active bool) (*model.User, error) {
	query := `
		UPDATE users SET is_active = $2, updated_at = NOW()
		WHERE email = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, NormalizeEmail(email), active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set user status: %w", err)
	}
	return user, nil
}

// DeleteUserByEmail removes a user. Quota and history rows cascade.
func (r *Repository) DeleteUserByEmail(ctx context.Context, email string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
