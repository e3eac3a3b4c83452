package app

import (
	"context"
	"database/sql"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/adapter/repository/postgres"
	"github.com/user/nutricare/internal/adapter/repository/redis"
	"github.com/user/nutricare/internal/cache"
	"github.com/user/nutricare/internal/pkg/config"
	"github.com/user/nutricare/internal/ratelimit"
	"github.com/user/nutricare/internal/usecase"
)

// App is the composition root of the data access layer. API routes, UI and
// other consumers operate exclusively through its services.
type App struct {
	Users          *usecase.UserService
	HealthProfiles *usecase.HealthProfileService
	Families       *usecase.FamilyService
	Consents       *usecase.ConsentService
	Audits         *usecase.AuditService
	Cache          *cache.Cache
	RateLimiter    *ratelimit.Limiter

	db    *sql.DB
	store *redis.Store
}

// New wires repositories, cache, limiter and services from their backing
// handles. No component holds hidden global state; everything is injected.
func New(cfg *config.Config, logger *slog.Logger, db *sql.DB, redisClient *goredis.Client, m *metrics.DataMetrics) *App {
	store := redis.NewStore(redisClient, logger)
	tenantCache := cache.New(store, logger, m, cache.TTLPolicy{
		Session:   cfg.CacheSessionTTL,
		Reference: cfg.CacheReferenceTTL,
		Health:    cfg.CacheHealthTTL,
		Default:   cfg.CacheDefaultTTL,
	})
	limiter := ratelimit.New(store, logger, m)

	runner := postgres.NewTenantDB(db, logger, cfg.DBCheckoutTimeout)
	users := postgres.NewUserRepository()
	profiles := postgres.NewHealthProfileRepository()
	families := postgres.NewFamilyRepository()
	consents := postgres.NewConsentRepository()
	audits := postgres.NewAuditRepository()

	return &App{
		Users:          usecase.NewUserService(runner, users, audits, tenantCache, logger, m, cfg.MaxFailedLogins, cfg.LockoutWindow),
		HealthProfiles: usecase.NewHealthProfileService(runner, profiles, audits, tenantCache, logger, m),
		Families:       usecase.NewFamilyService(runner, families, audits, tenantCache, logger, m),
		Consents:       usecase.NewConsentService(runner, consents, audits, logger, m),
		Audits:         usecase.NewAuditService(runner, audits, logger, m),
		Cache:          tenantCache,
		RateLimiter:    limiter,
		db:             db,
		store:          store,
	}
}

// Ping verifies both backing stores are reachable.
func (a *App) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return err
	}
	return a.store.Ping(ctx)
}
