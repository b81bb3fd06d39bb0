//go:build integration

package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/infomap/infomap/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_GetOrCreateUser(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	email := testutil.UniqueEmail("create")

	first, err := repo.GetOrCreateUser(ctx, email, 5)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if first.IsActive || first.IsAdmin {
		t.Errorf("new user should be inactive non-admin, got %+v", first)
	}
	if first.MaxDailyQuota != 5 {
		t.Errorf("MaxDailyQuota = %d, want 5", first.MaxDailyQuota)
	}

	second, err := repo.GetOrCreateUser(ctx, "  "+email+"  ", 99)
	if err != nil {
		t.Fatalf("GetOrCreateUser (second) failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same ID, got %d and %d", first.ID, second.ID)
	}
	if second.MaxDailyQuota != 5 {
		t.Errorf("existing user must not be modified, got quota %d", second.MaxDailyQuota)
	}
}

func TestIntegrationUserRepository_GetOrCreateUser_Concurrent(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	email := testutil.UniqueEmail("race")
	const callers = 8

	ids := make([]int64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := repo.GetOrCreateUser(ctx, email, 5)
			errs[i] = err
			if u != nil {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got ID %d, want %d", i, ids[i], ids[0])
		}
	}

	var rows int
	if err := repo.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, email).Scan(&rows); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected exactly one row, got %d", rows)
	}
}

func TestIntegrationUserRepository_UpsertAdmin(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	email := testutil.UniqueEmail("admin")
	if _, err := repo.GetOrCreateUser(ctx, email, 5); err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	admin, err := repo.UpsertAdmin(ctx, email, 15)
	if err != nil {
		t.Fatalf("UpsertAdmin failed: %v", err)
	}
	if !admin.IsAdmin || !admin.IsActive || admin.MaxDailyQuota != 15 {
		t.Errorf("unexpected admin: %+v", admin)
	}
}

func TestIntegrationUserRepository_CreateUsers(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	existing := testutil.UniqueEmail("existing")
	if _, err := repo.GetOrCreateUser(ctx, existing, 5); err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	fresh := testutil.UniqueEmail("fresh")
	created, err := repo.CreateUsers(ctx, []string{existing, fresh, fresh, ""}, 7, true)
	if err != nil {
		t.Fatalf("CreateUsers failed: %v", err)
	}
	if len(created) != 1 || created[0] != fresh {
		t.Fatalf("created = %v, want [%s]", created, fresh)
	}

	u, err := repo.GetUserByEmail(ctx, fresh)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if !u.IsActive || u.MaxDailyQuota != 7 {
		t.Errorf("unexpected pre-authorized user: %+v", u)
	}

	old, err := repo.GetUserByEmail(ctx, existing)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if old.IsActive || old.MaxDailyQuota != 5 {
		t.Errorf("existing user must be untouched, got %+v", old)
	}
}

func TestIntegrationUserRepository_ListUsersWithUsage(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	a, _ := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("a"), 5)
	b, _ := repo.GetOrCreateUser(ctx, testutil.UniqueEmail("b"), 5)

	for i := 0; i < 3; i++ {
		if _, err := repo.IncrementDailyCount(ctx, a.ID, "2026-01-24", 10); err != nil {
			t.Fatalf("IncrementDailyCount failed: %v", err)
		}
	}
	if _, err := repo.IncrementDailyCount(ctx, b.ID, "2026-01-23", 10); err != nil {
		t.Fatalf("IncrementDailyCount failed: %v", err)
	}

	users, err := repo.ListUsersWithUsage(ctx, "2026-01-24")
	if err != nil {
		t.Fatalf("ListUsersWithUsage failed: %v", err)
	}

	counts := make(map[int64]int)
	for _, u := range users {
		counts[u.ID] = u.TodayCount
		if u.Date != "2026-01-24" {
			t.Errorf("Date = %q, want 2026-01-24", u.Date)
		}
	}
	if counts[a.ID] != 3 {
		t.Errorf("user a count = %d, want 3", counts[a.ID])
	}
	if counts[b.ID] != 0 {
		t.Errorf("user b count = %d, want 0 (yesterday must not leak)", counts[b.ID])
	}
}

func TestIntegrationUserRepository_SetMaxDailyQuotaAndActive(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	email := testutil.UniqueEmail("mutate")
	if _, err := repo.GetOrCreateUser(ctx, email, 5); err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	u, err := repo.SetMaxDailyQuota(ctx, email, 42)
	if err != nil {
		t.Fatalf("SetMaxDailyQuota failed: %v", err)
	}
	if u.MaxDailyQuota != 42 {
		t.Errorf("MaxDailyQuota = %d, want 42", u.MaxDailyQuota)
	}

	u, err = repo.SetActive(ctx, email, true)
	if err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if !u.IsActive {
		t.Error("expected user to be active")
	}

	if _, err := repo.SetActive(ctx, testutil.UniqueEmail("ghost"), true); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationUserRepository_DeleteCascades(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	email := testutil.UniqueEmail("delete")
	u, err := repo.GetOrCreateUser(ctx, email, 5)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if _, err := repo.IncrementDailyCount(ctx, u.ID, "2026-01-24", 10); err != nil {
		t.Fatalf("IncrementDailyCount failed: %v", err)
	}

	if err := repo.DeleteUserByEmail(ctx, email); err != nil {
		t.Fatalf("DeleteUserByEmail failed: %v", err)
	}

	var quotas int
	if err := repo.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM daily_quotas WHERE user_id = $1`, u.ID).Scan(&quotas); err != nil {
		t.Fatalf("count quotas: %v", err)
	}
	if quotas != 0 {
		t.Errorf("expected quota rows to cascade, got %d", quotas)
	}

	if err := repo.DeleteUserByEmail(ctx, email); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound on second delete, got %v", err)
	}
}
