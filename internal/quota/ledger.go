// Package quota implements the per-user daily request ledger.
//
// Counts are keyed by (user, civil date) in a single timezone fixed at
// startup, so quotas reset implicitly when the date rolls over.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/infomap/infomap/internal/model"
)

// ErrExhausted is returned by a Store when an increment would exceed max.
var ErrExhausted = errors.New("daily quota exhausted")

// Store persists daily counts. Increments must be atomic per (userID, date)
// and must not take the count above max; in that case nothing is written
// and ErrExhausted is returned.
type Store interface {
	GetDailyCount(ctx context.Context, userID int64, date string) (int, error)
	IncrementDailyCount(ctx context.Context, userID int64, date string, max int) (int, error)
	IncrementDailyCountWithHistory(ctx context.Context, userID int64, date string, max int, h *model.QueryHistory) (int, error)
}

// Ledger tracks request counts against each user's daily maximum.
type Ledger struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// NewLedger creates a Ledger whose civil dates are computed in loc.
func NewLedger(store Store, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{store: store, loc: loc, now: time.Now}
}

// WithClock overrides the clock used by Today. Intended for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Today returns the current civil date in the ledger's timezone.
func (l *Ledger) Today() string {
	return l.DateOf(l.now())
}

// DateOf returns the civil date of t in the ledger's timezone.
func (l *Ledger) DateOf(t time.Time) string {
	return t.In(l.loc).Format(model.DateLayout)
}

// GetCount returns the stored count for (userID, date), or 0 when none exists.
func (l *Ledger) GetCount(ctx context.Context, userID int64, date string) (int, error) {
	count, err := l.store.GetDailyCount(ctx, userID, date)
	if err != nil {
		return 0, fmt.Errorf("get daily count: %w", err)
	}
	return count, nil
}

// Increment creates or increments the (user, date) record and returns the new
// count. It fails with ErrExhausted once the count has reached user.MaxDailyQuota.
func (l *Ledger) Increment(ctx context.Context, user *model.User, date string) (int, error) {
	count, err := l.store.IncrementDailyCount(ctx, user.ID, date, user.MaxDailyQuota)
	if err != nil {
		return 0, fmt.Errorf("increment daily count: %w", err)
	}
	return count, nil
}

// Record increments the count and appends h in one unit of work, under the
// same bound as Increment. With a nil h it behaves like Increment.
func (l *Ledger) Record(ctx context.Context, user *model.User, date string, h *model.QueryHistory) (int, error) {
	if h == nil {
		return l.Increment(ctx, user, date)
	}
	count, err := l.store.IncrementDailyCountWithHistory(ctx, user.ID, date, user.MaxDailyQuota, h)
	if err != nil {
		return 0, fmt.Errorf("record query: %w", err)
	}
	return count, nil
}

// HasRemaining reports whether user may make another request on date,
// along with the current count.
func (l *Ledger) HasRemaining(ctx context.Context, user *model.User, date string) (bool, int, error) {
	count, err := l.GetCount(ctx, user.ID, date)
	if err != nil {
		return false, 0, err
	}
	return count < user.MaxDailyQuota, count, nil
}
