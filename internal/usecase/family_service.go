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

// FamilyService manages family accounts and their bounded membership. The
// capacity check and the member insert run against the same locked account
// row, so concurrent adds can never both observe "under capacity".
type FamilyService struct {
	runner   domain.TenantRunner
	families domain.FamilyRepository
	cache    *cache.Cache
	logger   *slog.Logger
	auditor  *auditor
	now      func() time.Time
}

// NewFamilyService wires a FamilyService. metrics may be nil in tests.
func NewFamilyService(
	runner domain.TenantRunner,
	families domain.FamilyRepository,
	audits domain.AuditRepository,
	c *cache.Cache,
	logger *slog.Logger,
	m *metrics.DataMetrics,
) *FamilyService {
	return &FamilyService{
		runner:   runner,
		families: families,
		cache:    c,
		logger:   logger.With("component", "family_service"),
		auditor:  &auditor{audits: audits, metrics: m},
		now:      time.Now,
	}
}

// GetMembers lists an account's members, cache-aside.
func (s *FamilyService) GetMembers(ctx context.Context, tenantID string, accountID uuid.UUID) ([]domain.FamilyMember, error) {
	var cached []domain.FamilyMember
	hit, err := s.cache.Get(ctx, tenantID, cache.NamespaceFamily, accountID.String(), &cached)
	if err != nil {
		s.logger.Warn("family cache read failed, falling back to store", "error", err)
	}
	if hit {
		return cached, nil
	}

	var members []domain.FamilyMember
	err = s.runner.WithTenant(ctx, tenantID, func(q domain.Querier) error {
		var err error
		members, err = s.families.ListMembers(ctx, q, tenantID, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, tenantID, cache.NamespaceFamily, accountID.String(), members); err != nil {
		s.logger.Warn("family cache write failed", "error", err)
	}
	return members, nil
}

// AddMember adds a member to an account if capacity allows. The account row
// is locked for the duration of the transaction; at capacity the call fails
// with ErrCapacityExceeded and no member or audit row is written.
func (s *FamilyService) AddMember(ctx context.Context, tenantID string, m *domain.FamilyMember, actor domain.Actor) error {
	if m.AccountID == uuid.Nil || m.UserID == uuid.Nil {
		return fmt.Errorf("%w: account id and user id are required", domain.ErrValidation)
	}

	err := s.runner.WithTransaction(ctx, tenantID, func(q domain.Querier) error {
		account, err := s.families.GetAccountForUpdate(ctx, q, tenantID, m.AccountID)
		if err != nil {
			return err
		}

		count, err := s.families.CountMembers(ctx, q, tenantID, m.AccountID)
		if err != nil {
			return err
		}
		if count >= account.MaxMembers {
			return fmt.Errorf("%w: family account %s has %d of %d members",
				domain.ErrCapacityExceeded, account.ID, count, account.MaxMembers)
		}

		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.TenantID = tenantID
		m.CreatedAt = s.now().UTC()

		entry := newAuditEntry(tenantID, actor, domain.ActionFamilyMemberAdded,
			"family_member", m.ID.String(), nil, m)
		return s.auditor.runAudited(ctx, q, entry, func() error {
			return s.families.InsertMember(ctx, q, m)
		})
	})
	if err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, tenantID, cache.NamespaceFamily, m.AccountID.String()); err != nil {
		s.logger.Warn("family cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
	return nil
}
