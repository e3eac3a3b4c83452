package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/nutricare/internal/adapter/repository/postgres"
	"github.com/user/nutricare/internal/app"
	"github.com/user/nutricare/internal/domain"
	"github.com/user/nutricare/internal/pkg/config"
)

// newTestApp wires the full stack against real backing stores. The test is
// skipped unless NUTRICARE_TEST_POSTGRES_URL and NUTRICARE_TEST_REDIS_URL
// point at disposable instances. Metrics stay nil so repeated wiring within
// one test binary does not collide on the default Prometheus registry.
func newTestApp(t *testing.T) *app.App {
	t.Helper()

	pgURL := os.Getenv("NUTRICARE_TEST_POSTGRES_URL")
	redisURL := os.Getenv("NUTRICARE_TEST_REDIS_URL")
	if pgURL == "" || redisURL == "" {
		t.Skip("set NUTRICARE_TEST_POSTGRES_URL and NUTRICARE_TEST_REDIS_URL to run integration tests")
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := postgres.Open(ctx, pgURL, postgres.PoolOptions{MaxOpenConns: 10})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		CacheSessionTTL:   30 * time.Minute,
		CacheReferenceTTL: 24 * time.Hour,
		CacheHealthTTL:    5 * time.Minute,
		CacheDefaultTTL:   10 * time.Minute,
		DBCheckoutTimeout: 5 * time.Second,
		MaxFailedLogins:   5,
		LockoutWindow:     15 * time.Minute,
	}
	return app.New(cfg, logger, db, client, nil)
}

func TestHealthProfileFlow(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	tenant := "itest-" + uuid.NewString()
	actor := domain.Actor{ID: "clinician-1", IPAddress: "127.0.0.1"}

	u := &domain.User{
		ExternalID:       "ext-" + uuid.NewString(),
		Email:            "alice@example.com",
		SubscriptionTier: domain.TierPremium,
	}
	if err := a.Users.Create(ctx, tenant, u, actor); err != nil {
		t.Fatalf("create user: %v", err)
	}

	profile := &domain.HealthProfile{
		UserID:        u.ID,
		Allergies:     []string{"peanuts"},
		LabValues:     []byte(`{"a1c":6.1}`),
		ClinicalNotes: "baseline visit",
	}
	if err := a.HealthProfiles.Update(ctx, tenant, profile, actor); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	// Enhanced reader: gated fields absent, baseline present.
	record, err := a.HealthProfiles.Get(ctx, tenant, u.ID, "reader-1", domain.TierEnhanced)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if _, leaked := record["lab_values"]; leaked {
		t.Error("lab_values leaked to an enhanced reader")
	}
	if _, ok := record["allergies"]; !ok {
		t.Error("allergies missing for enhanced reader")
	}

	// Update-then-read reflects the new value: the cache was invalidated.
	profile.ClinicalNotes = "follow-up visit"
	if err := a.HealthProfiles.Update(ctx, tenant, profile, actor); err != nil {
		t.Fatalf("second update: %v", err)
	}
	record, err = a.HealthProfiles.Get(ctx, tenant, u.ID, "reader-1", domain.TierPremium)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if record["clinical_notes"] != "follow-up visit" {
		t.Errorf("stale profile served: %v", record["clinical_notes"])
	}

	// The trail holds the mutation and read events.
	logs, err := a.Audits.GetLogs(ctx, tenant, domain.Pagination{Limit: 50}, domain.Actor{ID: "auditor-1"})
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	count := map[string]int{}
	for _, e := range logs {
		count[e.Action]++
	}
	if count[domain.ActionHealthProfileUpdated] != 2 {
		t.Errorf("profile update audits = %d, want 2", count[domain.ActionHealthProfileUpdated])
	}
	if count[domain.ActionHealthProfileViewed] != 2 {
		t.Errorf("profile view audits = %d, want 2", count[domain.ActionHealthProfileViewed])
	}
}

func TestFamilyCapacityRace(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	tenant := "itest-" + uuid.NewString()
	actor := domain.Actor{ID: "owner-1"}

	// Seed an account with one free slot via the repository layer.
	const k = 1
	account := &domain.FamilyAccount{
		ID:          uuid.New(),
		TenantID:    tenant,
		OwnerUserID: uuid.New(),
		Name:        "capacity-race",
		MaxMembers:  k,
	}
	pgURL := os.Getenv("NUTRICARE_TEST_POSTGRES_URL")
	db, err := postgres.Open(ctx, pgURL, postgres.PoolOptions{MaxOpenConns: 5})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	defer db.Close()
	_, err = db.ExecContext(ctx,
		`INSERT INTO family_accounts (id, tenant_id, owner_user_id, name, max_members, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		account.ID, account.TenantID, account.OwnerUserID, account.Name, account.MaxMembers)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, k+2)
	for i := 0; i < k+2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New()}
			errs[i] = a.Families.AddMember(ctx, tenant, m, actor)
		}(i)
	}
	wg.Wait()

	var ok, capacity int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrCapacityExceeded):
			capacity++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != k || capacity != 2 {
		t.Errorf("successes = %d (want %d), capacity failures = %d (want 2)", ok, k, capacity)
	}
}

func TestRateLimitWindow(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	id := "itest-" + uuid.NewString()

	for i := int64(1); i <= 5; i++ {
		d, err := a.RateLimiter.Check(ctx, id, 5, 2*time.Second)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !d.Allowed || d.Remaining != 5-i {
			t.Fatalf("call %d: %+v", i, d)
		}
	}

	d, err := a.RateLimiter.Check(ctx, id, 5, 2*time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed {
		t.Error("sixth call should be denied")
	}

	time.Sleep(2100 * time.Millisecond)

	d, err = a.RateLimiter.Check(ctx, id, 5, 2*time.Second)
	if err != nil {
		t.Fatalf("check after window: %v", err)
	}
	if !d.Allowed {
		t.Error("call after window reset should be allowed")
	}
}

func TestCacheTenantIsolation(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	t1 := "itest-" + uuid.NewString()
	t2 := "itest-" + uuid.NewString()

	if err := a.Cache.Set(ctx, t1, "health", "u1", map[string]string{"secret": "yes"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got map[string]string
	hit, err := a.Cache.Get(ctx, t2, "health", "u1", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Error("tenant t2 must not see tenant t1's cache entry")
	}
}
