//go:build integration

package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/infomap/infomap/internal/quota"
	"github.com/infomap/infomap/internal/testutil"
)

// ============================================================================
// Quota Repository Integration Tests
// ============================================================================

func TestIntegrationQuotaRepository_IncrementSequence(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	u, err := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("seq"), 2)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	count, err := repo.GetDailyCount(ctx, u.ID, "2026-01-24")
	if err != nil {
		t.Fatalf("GetDailyCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count before increment = %d, want 0", count)
	}

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-24", 10)
		if err != nil {
			t.Fatalf("IncrementDailyCount failed: %v", err)
		}
		if got != want {
			t.Errorf("increment %d returned %d", want, got)
		}
	}

	other, err := repo.GetDailyCount(ctx, u.ID, "2026-01-25")
	if err != nil {
		t.Fatalf("GetDailyCount failed: %v", err)
	}
	if other != 0 {
		t.Errorf("next day count = %d, want 0", other)
	}
}

func TestIntegrationQuotaRepository_ConcurrentIncrement(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	u, err := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("concurrent"), 100)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-24", 100); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("IncrementDailyCount failed: %v", err)
	}

	count, err := repo.GetDailyCount(ctx, u.ID, "2026-01-24")
	if err != nil {
		t.Fatalf("GetDailyCount failed: %v", err)
	}
	if count != callers {
		t.Errorf("final count = %d, want %d", count, callers)
	}
}

func TestIntegrationQuotaRepository_IncrementWithHistory_Atomic(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	u, err := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("atomic"), 5)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	h := testutil.NewTestHistory(t, u.ID, time.Now())
	count, err := repo.IncrementDailyCountWithHistory(ctx, u.ID, "2026-01-24", 5, h)
	if err != nil {
		t.Fatalf("IncrementDailyCountWithHistory failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// Same history id again: the insert fails and the increment must roll back.
	_, err = repo.IncrementDailyCountWithHistory(ctx, u.ID, "2026-01-24", 5, h)
	if !errors.Is(err, ErrHistoryExists) {
		t.Fatalf("expected ErrHistoryExists, got %v", err)
	}

	count, err = repo.GetDailyCount(ctx, u.ID, "2026-01-24")
	if err != nil {
		t.Fatalf("GetDailyCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count after failed transaction = %d, want 1", count)
	}
}

func TestIntegrationQuotaRepository_IncrementStopsAtMax(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	u, err := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("bounded"), 2)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-24", 2); err != nil {
			t.Fatalf("IncrementDailyCount failed: %v", err)
		}
	}

	if _, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-24", 2); !errors.Is(err, quota.ErrExhausted) {
		t.Fatalf("expected quota.ErrExhausted, got %v", err)
	}

	h := testutil.NewTestHistory(t, u.ID, time.Now())
	if _, err := repo.IncrementDailyCountWithHistory(ctx, u.ID, "2026-01-24", 2, h); !errors.Is(err, quota.ErrExhausted) {
		t.Fatalf("expected quota.ErrExhausted with history, got %v", err)
	}
	records, err := repo.ListRecentHistory(ctx, u.ID, time.Now().Add(-time.Hour), 20)
	if err != nil {
		t.Fatalf("ListRecentHistory failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("rejected increment must not write history, got %d records", len(records))
	}

	if _, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-25", 0); !errors.Is(err, quota.ErrExhausted) {
		t.Errorf("zero quota: expected quota.ErrExhausted, got %v", err)
	}
	if count, _ := repo.GetDailyCount(ctx, u.ID, "2026-01-25"); count != 0 {
		t.Errorf("zero quota must not create a row, count = %d", count)
	}
}

func TestIntegrationQuotaRepository_ConcurrentIncrementBounded(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	u, err := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("bounded-concurrent"), 5)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-24", 5)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, quota.ErrExhausted):
		default:
			t.Fatalf("IncrementDailyCount failed: %v", err)
		}
	}
	if accepted != 5 {
		t.Errorf("accepted = %d, want 5", accepted)
	}
	if count, _ := repo.GetDailyCount(ctx, u.ID, "2026-01-24"); count != 5 {
		t.Errorf("final count = %d, want 5", count)
	}
}
