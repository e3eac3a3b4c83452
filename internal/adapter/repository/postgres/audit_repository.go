package postgres

import (
	"context"
	"fmt"

	"github.com/user/nutricare/internal/domain"
)

type auditRepository struct{}

// NewAuditRepository creates a PostgreSQL-backed audit log repository.
// Entries are append-only; retention is governed outside the application.
func NewAuditRepository() domain.AuditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Insert(ctx context.Context, q domain.Querier, e *domain.AuditLogEntry) error {
	query := `
        INSERT INTO audit_logs (id, tenant_id, actor_id, action, resource_type, resource_id,
                                old_values, new_values, ip_address, user_agent, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := q.ExecContext(ctx, query,
		e.ID,
		e.TenantID,
		e.ActorID,
		e.Action,
		e.ResourceType,
		e.ResourceID,
		nullableJSON(e.OldValues),
		nullableJSON(e.NewValues),
		e.IPAddress,
		e.UserAgent,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, q domain.Querier, tenantID string, p domain.Pagination) ([]domain.AuditLogEntry, error) {
	query := `
        SELECT id, tenant_id, actor_id, action, resource_type, resource_id,
               old_values, new_values, ip_address, user_agent, created_at
        FROM audit_logs
        WHERE tenant_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `

	rows, err := q.QueryContext(ctx, query, tenantID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.ActorID,
			&e.Action,
			&e.ResourceType,
			&e.ResourceID,
			&e.OldValues,
			&e.NewValues,
			&e.IPAddress,
			&e.UserAgent,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}
