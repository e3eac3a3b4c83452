package usecase

import (
	"context"
	"log/slog"

	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/domain"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditService reads the audit trail. Viewing the trail is itself a tracked
// operation, so every page served leaves its own view event.
type AuditService struct {
	runner  domain.TenantRunner
	audits  domain.AuditRepository
	logger  *slog.Logger
	auditor *auditor
}

// NewAuditService wires an AuditService. metrics may be nil in tests.
func NewAuditService(
	runner domain.TenantRunner,
	audits domain.AuditRepository,
	logger *slog.Logger,
	m *metrics.DataMetrics,
) *AuditService {
	return &AuditService{
		runner:  runner,
		audits:  audits,
		logger:  logger.With("component", "audit_service"),
		auditor: &auditor{audits: audits, metrics: m},
	}
}

// GetLogs returns one page of the tenant's audit trail, newest first.
func (s *AuditService) GetLogs(ctx context.Context, tenantID string, p domain.Pagination, actor domain.Actor) ([]domain.AuditLogEntry, error) {
	if p.Limit <= 0 {
		p.Limit = defaultAuditPageSize
	}
	if p.Limit > maxAuditPageSize {
		p.Limit = maxAuditPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	var entries []domain.AuditLogEntry
	err := s.runner.WithTenant(ctx, tenantID, func(q domain.Querier) error {
		var err error
		entries, err = s.audits.List(ctx, q, tenantID, p)
		if err != nil {
			return err
		}

		view := newAuditEntry(tenantID, actor, domain.ActionAuditLogViewed,
			"audit_log", "audit_logs", nil, p)
		return s.auditor.record(ctx, q, view)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
