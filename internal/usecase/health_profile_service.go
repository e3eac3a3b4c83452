package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/cache"
	"github.com/user/nutricare/internal/domain"
	"github.com/user/nutricare/internal/phi"
)

// HealthProfileService exposes tenant-scoped health profile operations.
// Every read passes through the PHI gate as its final step, whether the raw
// record came from cache or a fresh query, and is logged as a read-audit
// event distinct from mutation audits.
type HealthProfileService struct {
	runner   domain.TenantRunner
	profiles domain.HealthProfileRepository
	cache    *cache.Cache
	logger   *slog.Logger
	auditor  *auditor
	now      func() time.Time
}

// NewHealthProfileService wires a HealthProfileService. metrics may be nil
// in tests.
func NewHealthProfileService(
	runner domain.TenantRunner,
	profiles domain.HealthProfileRepository,
	audits domain.AuditRepository,
	c *cache.Cache,
	logger *slog.Logger,
	m *metrics.DataMetrics,
) *HealthProfileService {
	return &HealthProfileService{
		runner:   runner,
		profiles: profiles,
		cache:    c,
		logger:   logger.With("component", "health_profile_service"),
		auditor:  &auditor{audits: audits, metrics: m},
		now:      time.Now,
	}
}

// Get returns a user's health profile filtered for the requestor's tier.
// The read is audited before any data leaves the service; an unloggable PHI
// read fails closed.
func (s *HealthProfileService) Get(ctx context.Context, tenantID string, userID uuid.UUID, requestorID string, tier domain.SubscriptionTier) (map[string]any, error) {
	if requestorID == "" {
		return nil, fmt.Errorf("%w: requestor id is required", domain.ErrValidation)
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown subscription tier %q", domain.ErrValidation, tier)
	}

	// The cache try stays outside the connection checkout; the checkout is
	// for the store read and the view audit only.
	var profile *domain.HealthProfile
	var cached domain.HealthProfile
	hit, err := s.cache.Get(ctx, tenantID, cache.NamespaceHealth, userID.String(), &cached)
	if err != nil {
		s.logger.Warn("health cache read failed, falling back to store", "error", err)
	}
	if hit {
		profile = &cached
	}

	err = s.runner.WithTenant(ctx, tenantID, func(q domain.Querier) error {
		if profile == nil {
			profile, err = s.profiles.GetByUserID(ctx, q, tenantID, userID)
			if err != nil {
				return err
			}
		}

		entry := newAuditEntry(tenantID, domain.Actor{ID: requestorID}, domain.ActionHealthProfileViewed,
			"health_profile", userID.String(), nil, nil)
		return s.auditor.record(ctx, q, entry)
	})
	if err != nil {
		return nil, err
	}

	if !hit {
		if err := s.cache.Set(ctx, tenantID, cache.NamespaceHealth, userID.String(), profile); err != nil {
			s.logger.Warn("health cache write failed", "error", err)
		}
	}

	// The gate, not the cache, is the enforcement point: filtering is
	// unconditional and applied last.
	return phi.Filter(tier, profile)
}

// Update upserts a user's health profile and its audit record in one
// transaction, then evicts the user's cached health data so stale PHI is
// never served.
func (s *HealthProfileService) Update(ctx context.Context, tenantID string, p *domain.HealthProfile, actor domain.Actor) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	err := s.runner.WithTransaction(ctx, tenantID, func(q domain.Querier) error {
		old, err := s.profiles.GetByUserID(ctx, q, tenantID, p.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := s.now().UTC()
		if old != nil {
			p.ID = old.ID
			p.CreatedAt = old.CreatedAt
		} else {
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			p.CreatedAt = now
		}
		p.TenantID = tenantID
		p.UpdatedAt = now

		entry := newAuditEntry(tenantID, actor, domain.ActionHealthProfileUpdated,
			"health_profile", p.UserID.String(), old, p)
		return s.auditor.runAudited(ctx, q, entry, func() error {
			return s.profiles.Upsert(ctx, q, p)
		})
	})
	if err != nil {
		return err
	}

	if _, err := s.cache.InvalidateHealth(ctx, tenantID, p.UserID.String()); err != nil {
		s.logger.Warn("health cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
	return nil
}
