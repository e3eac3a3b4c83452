package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/domain"
)

// ConsentService records and checks user consents. Writes are audited in
// the same transaction; reads are tenant-scoped.
type ConsentService struct {
	runner   domain.TenantRunner
	consents domain.ConsentRepository
	logger   *slog.Logger
	auditor  *auditor
	now      func() time.Time
}

// NewConsentService wires a ConsentService. metrics may be nil in tests.
func NewConsentService(
	runner domain.TenantRunner,
	consents domain.ConsentRepository,
	audits domain.AuditRepository,
	logger *slog.Logger,
	m *metrics.DataMetrics,
) *ConsentService {
	return &ConsentService{
		runner:   runner,
		consents: consents,
		logger:   logger.With("component", "consent_service"),
		auditor:  &auditor{audits: audits, metrics: m},
		now:      time.Now,
	}
}

// RecordConsent appends a consent record and its audit entry atomically.
func (s *ConsentService) RecordConsent(ctx context.Context, tenantID string, c *domain.UserConsent, actor domain.Actor) error {
	if c.UserID == uuid.Nil || c.ConsentType == "" || c.Version == "" {
		return fmt.Errorf("%w: user id, consent type and version are required", domain.ErrValidation)
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.TenantID = tenantID
	if c.GrantedAt.IsZero() {
		c.GrantedAt = s.now().UTC()
	}

	return s.runner.WithTransaction(ctx, tenantID, func(q domain.Querier) error {
		entry := newAuditEntry(tenantID, actor, domain.ActionConsentRecorded,
			"user_consent", c.ID.String(), nil, c)
		return s.auditor.runAudited(ctx, q, entry, func() error {
			return s.consents.Insert(ctx, q, c)
		})
	})
}

// HasCurrentConsent reports whether the user's latest consent of the given
// type is granted, unrevoked, and matches the version currently in force.
func (s *ConsentService) HasCurrentConsent(ctx context.Context, tenantID string, userID uuid.UUID, consentType, requiredVersion string) (bool, error) {
	if consentType == "" || requiredVersion == "" {
		return false, fmt.Errorf("%w: consent type and version are required", domain.ErrValidation)
	}

	var current bool
	err := s.runner.WithTenant(ctx, tenantID, func(q domain.Querier) error {
		c, err := s.consents.GetCurrent(ctx, q, tenantID, userID, consentType)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		current = c.Current(requiredVersion)
		return nil
	})
	if err != nil {
		return false, err
	}
	return current, nil
}
