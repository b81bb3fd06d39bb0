package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/infomap/infomap/internal/model"
	"github.com/infomap/infomap/internal/repository"
)

// UserStore is the persistence used by UserService.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetOrCreateUser(ctx context.Context, email string, maxDailyQuota int) (*model.User, error)
	CreateUsers(ctx context.Context, emails []string, maxDailyQuota int, isActive bool) ([]string, error)
	ListUsersWithUsage(ctx context.Context, date string) ([]model.UserWithUsage, error)
	SetMaxDailyQuota(ctx context.Context, email string, maxDailyQuota int) (*model.User, error)
	SetActive(ctx context.Context, email string, active bool) (*model.User, error)
	DeleteUserByEmail(ctx context.Context, email string) error
	GetDailyCount(ctx context.Context, userID int64, date string) (int, error)
	ListRecentHistory(ctx context.Context, userID int64, since time.Time, limit int) ([]model.QueryHistory, error)
	DeleteHistory(ctx context.Context, id string, userID int64) error
}

// Calendar resolves the current quota date.
type Calendar interface {
	Today() string
}

// UserConfig holds the tunables for UserService.
type UserConfig struct {
	DefaultDailyQuota int
	HistoryWindow     time.Duration
	HistoryLimit      int
}

// QuotaStatus is a user's usage for the current day.
type QuotaStatus struct {
	Count int    `json:"count"`
	Max   int    `json:"max"`
	Date  string `json:"date"`
}

// CreateUsersInput is the admin bulk pre-authorization request.
type CreateUsersInput struct {
	Emails        []string
	MaxDailyQuota *int
	IsActive      *bool
}

// UserService handles accounts, quota status, history and administration.
type UserService struct {
	store    UserStore
	calendar Calendar
	cfg      UserConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, calendar Calendar, cfg UserConfig, logger *slog.Logger) *UserService {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 4 * time.Hour
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &UserService{
		store:    store,
		calendar: calendar,
		cfg:      cfg,
		logger:   logger.With("component", "service.user"),
		now:      time.Now,
	}
}

// Resolve returns the user for a verified identity, creating an inactive
// account on first sight.
func (s *UserService) Resolve(ctx context.Context, id *model.Identity) (*model.User, error) {
	email := repository.NormalizeEmail(id.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	u, err := s.store.GetOrCreateUser(ctx, email, s.cfg.DefaultDailyQuota)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

// QuotaStatus returns today's usage for user.
func (s *UserService) QuotaStatus(ctx context.Context, user *model.User) (*QuotaStatus, error) {
	date := s.calendar.Today()
	count, err := s.store.GetDailyCount(ctx, user.ID, date)
	if err != nil {
		return nil, fmt.Errorf("get daily count: %w", err)
	}
	return &QuotaStatus{Count: count, Max: user.MaxDailyQuota, Date: date}, nil
}

// RecentHistory returns the user's queries inside the history window, newest first.
func (s *UserService) RecentHistory(ctx context.Context, user *model.User) ([]model.QueryHistory, error) {
	since := s.now().Add(-s.cfg.HistoryWindow)
	records, err := s.store.ListRecentHistory(ctx, user.ID, since, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if records == nil {
		records = []model.QueryHistory{}
	}
	return records, nil
}

// DeleteHistory removes one of the user's own history records.
func (s *UserService) DeleteHistory(ctx context.Context, user *model.User, id string) error {
	if err := s.store.DeleteHistory(ctx, id, user.ID); err != nil {
		if errors.Is(err, repository.ErrHistoryNotFound) {
			return ErrHistoryNotFound
		}
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// ListUsers returns every user with today's usage.
func (s *UserService) ListUsers(ctx context.Context) ([]model.UserWithUsage, error) {
	users, err := s.store.ListUsersWithUsage(ctx, s.calendar.Today())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.UserWithUsage{}
	}
	return users, nil
}

// CreateUsers pre-authorizes a batch of emails. Existing accounts are left
// untouched. It returns the emails that were created.
func (s *UserService) CreateUsers(ctx context.Context, input CreateUsersInput) ([]string, error) {
	if len(input.Emails) == 0 {
		return nil, ErrInvalidEmail
	}
	emails := make([]string, 0, len(input.Emails))
	for _, e := range input.Emails {
		e = repository.NormalizeEmail(e)
		if !validEmail(e) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, e)
		}
		emails = append(emails, e)
	}

	quota := s.cfg.DefaultDailyQuota
	if input.MaxDailyQuota != nil {
		quota = *input.MaxDailyQuota
	}
	if quota < 0 {
		return nil, ErrInvalidQuota
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	created, err := s.store.CreateUsers(ctx, emails, quota, active)
	if err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	if created == nil {
		created = []string{}
	}
	s.logger.Info("users pre-authorized", "requested", len(emails), "created", len(created))
	return created, nil
}

// SetQuota changes a user's daily limit.
func (s *UserService) SetQuota(ctx context.Context, email string, maxDailyQuota int) (*model.User, error) {
	if maxDailyQuota < 0 {
		return nil, ErrInvalidQuota
	}
	u, err := s.store.SetMaxDailyQuota(ctx, repository.NormalizeEmail(email), maxDailyQuota)
	if err != nil {
		return nil, mapUserErr("set quota", err)
	}
	s.logger.Info("user quota changed", "user_id", u.ID, "max_daily_quota", maxDailyQuota)
	return u, nil
}

// SetActive activates or deactivates an account. Admins cannot deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actor *model.User, email string, active bool) (*model.User, error) {
	email = repository.NormalizeEmail(email)
	if !active && email == actor.Email {
		return nil, ErrSelfModification
	}
	u, err := s.store.SetActive(ctx, email, active)
	if err != nil {
		return nil, mapUserErr("set active", err)
	}
	s.logger.Info("user status changed", "user_id", u.ID, "is_active", active, "actor_id", actor.ID)
	return u, nil
}

// DeleteUser removes an account with its quota and history rows.
func (s *UserService) DeleteUser(ctx context.Context, actor *model.User, email string) error {
	email = repository.NormalizeEmail(email)
	if email == actor.Email {
		return ErrSelfModification
	}
	if err := s.store.DeleteUserByEmail(ctx, email); err != nil {
		return mapUserErr("delete user", err)
	}
	s.logger.Info("user deleted", "actor_id", actor.ID)
	return nil
}

func mapUserErr(op string, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 || strings.ContainsAny(email, " ,;") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
