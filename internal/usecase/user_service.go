package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/cache"
	"github.com/user/nutricare/internal/domain"
)

// UserService exposes tenant-scoped user operations. Reads are cache-aside;
// mutations run in one transaction with their audit record and invalidate
// the user's cache entries afterward.
type UserService struct {
	runner  domain.TenantRunner
	users   domain.UserRepository
	cache   *cache.Cache
	logger  *slog.Logger
	auditor *auditor

	maxFailedLogins int
	lockoutWindow   time.Duration
	now             func() time.Time
}

// NewUserService wires a UserService. metrics may be nil in tests.
func NewUserService(
	runner domain.TenantRunner,
	users domain.UserRepository,
	audits domain.AuditRepository,
	c *cache.Cache,
	logger *slog.Logger,
	m *metrics.DataMetrics,
	maxFailedLogins int,
	lockoutWindow time.Duration,
) *UserService {
	return &UserService{
		runner:          runner,
		users:           users,
		cache:           c,
		logger:          logger.With("component", "user_service"),
		auditor:         &auditor{audits: audits, metrics: m},
		maxFailedLogins: maxFailedLogins,
		lockoutWindow:   lockoutWindow,
		now:             time.Now,
	}
}

// GetByExternalID returns a user by external identity, consulting the cache
// first. A cache failure degrades to a fresh read; it never fails the call.
func (s *UserService) GetByExternalID(ctx context.Context, tenantID, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: external id is required", domain.ErrValidation)
	}

	var cached domain.User
	hit, err := s.cache.Get(ctx, tenantID, cache.NamespaceUser, externalID, &cached)
	if err != nil {
		s.logger.Warn("user cache read failed, falling back to store", "error", err)
	}
	if hit {
		return &cached, nil
	}

	var u *domain.User
	err = s.runner.WithTenant(ctx, tenantID, func(q domain.Querier) error {
		var err error
		u, err = s.users.GetByExternalID(ctx, q, tenantID, externalID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, tenantID, cache.NamespaceUser, externalID, u); err != nil {
		s.logger.Warn("user cache write failed", "error", err)
	}
	return u, nil
}

// Create inserts a user and its audit record in one transaction.
func (s *UserService) Create(ctx context.Context, tenantID string, u *domain.User, actor domain.Actor) error {
	if u.ExternalID == "" || u.Email == "" {
		return fmt.Errorf("%w: external id and email are required", domain.ErrValidation)
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = domain.TierBasic
	}
	if !u.SubscriptionTier.Valid() {
		return fmt.Errorf("%w: unknown subscription tier %q", domain.ErrValidation, u.SubscriptionTier)
	}

	now := s.now().UTC()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.TenantID = tenantID
	u.IsActive = true
	u.CreatedAt = now
	u.UpdatedAt = now

	err := s.runner.WithTransaction(ctx, tenantID, func(q domain.Querier) error {
		entry := newAuditEntry(tenantID, actor, domain.ActionUserCreated, "user", u.ID.String(), nil, u)
		return s.auditor.runAudited(ctx, q, entry, func() error {
			return s.users.Insert(ctx, q, u)
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, tenantID, u)
	return nil
}

// Update applies changes to a user, capturing the old and new values in the
// audit record.
func (s *UserService) Update(ctx context.Context, tenantID string, u *domain.User, actor domain.Actor) error {
	if u.ID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if u.SubscriptionTier != "" && !u.SubscriptionTier.Valid() {
		return fmt.Errorf("%w: unknown subscription tier %q", domain.ErrValidation, u.SubscriptionTier)
	}

	err := s.runner.WithTransaction(ctx, tenantID, func(q domain.Querier) error {
		old, err := s.users.GetByID(ctx, q, tenantID, u.ID)
		if err != nil {
			return err
		}

		// external_id and created_at never change; callers are not
		// required to set them.
		u.ExternalID = old.ExternalID
		u.CreatedAt = old.CreatedAt
		u.TenantID = tenantID
		u.UpdatedAt = s.now().UTC()
		entry := newAuditEntry(tenantID, actor, domain.ActionUserUpdated, "user", u.ID.String(), old, u)
		return s.auditor.runAudited(ctx, q, entry, func() error {
			return s.users.Update(ctx, q, u)
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, tenantID, u)
	return nil
}

// RecordLoginAttempt updates the failed-attempt counter for a user. A
// success resets the counter and clears any lockout; a failure increments it
// and, at the configured threshold, locks the account for the lockout
// window. The updated user is returned so callers can act on lockout state.
func (s *UserService) RecordLoginAttempt(ctx context.Context, tenantID, externalID string, success bool, actor domain.Actor) (*domain.User, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: external id is required", domain.ErrValidation)
	}

	var updated *domain.User
	err := s.runner.WithTransaction(ctx, tenantID, func(q domain.Querier) error {
		u, err := s.users.GetByExternalID(ctx, q, tenantID, externalID)
		if err != nil {
			return err
		}
		old := *u

		now := s.now().UTC()
		action := domain.ActionUserLoginSucceeded
		if success {
			u.FailedLoginAttempts = 0
			u.AccountLockedUntil = nil
		} else {
			action = domain.ActionUserLoginFailed
			u.FailedLoginAttempts++
			if u.FailedLoginAttempts >= s.maxFailedLogins {
				lockedUntil := now.Add(s.lockoutWindow)
				u.AccountLockedUntil = &lockedUntil
			}
		}
		u.UpdatedAt = now

		entry := newAuditEntry(tenantID, actor, action, "user", u.ID.String(), &old, u)
		if err := s.auditor.runAudited(ctx, q, entry, func() error {
			return s.users.Update(ctx, q, u)
		}); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, updated)
	return updated, nil
}

// invalidate evicts the user's cache entries after a committed mutation.
// Best effort: the next read repopulates from the store either way.
func (s *UserService) invalidate(ctx context.Context, tenantID string, u *domain.User) {
	if _, err := s.cache.InvalidateUser(ctx, tenantID, u.ExternalID); err != nil {
		s.logger.Warn("user cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
	if _, err := s.cache.InvalidateUser(ctx, tenantID, u.ID.String()); err != nil {
		s.logger.Warn("user cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}
