package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/domain"
)

// auditor persists audit entries as a side effect of tracked operations.
// When used inside a transaction, an audit failure propagates as
// ErrAuditWrite and rolls the whole mutation back: a regulated change is
// never observable without its audit record.
type auditor struct {
	audits  domain.AuditRepository
	metrics *metrics.DataMetrics
}

// record writes one audit entry on the given querier.
func (a *auditor) record(ctx context.Context, q domain.Querier, e *domain.AuditLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	if err := a.audits.Insert(ctx, q, e); err != nil {
		if a.metrics != nil {
			a.metrics.AuditWrites.WithLabelValues("failed").Inc()
		}
		return fmt.Errorf("%w: %v", domain.ErrAuditWrite, err)
	}
	if a.metrics != nil {
		a.metrics.AuditWrites.WithLabelValues("written").Inc()
	}
	return nil
}

// runAudited executes fn and then records the audit entry on the same
// querier. If fn fails, no audit row is written; if the audit write fails,
// the error causes the enclosing transaction to roll back.
func (a *auditor) runAudited(ctx context.Context, q domain.Querier, e *domain.AuditLogEntry, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return a.record(ctx, q, e)
}

// newAuditEntry assembles an entry from an actor and a resource, with
// optional old/new value snapshots.
func newAuditEntry(tenantID string, actor domain.Actor, action, resourceType, resourceID string, oldValues, newValues any) *domain.AuditLogEntry {
	return &domain.AuditLogEntry{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    toJSON(oldValues),
		NewValues:    toJSON(newValues),
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
}

func toJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
