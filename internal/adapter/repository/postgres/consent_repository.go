package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
)

type consentRepository struct{}

// NewConsentRepository creates a PostgreSQL-backed consent repository.
func NewConsentRepository() domain.ConsentRepository {
	return &consentRepository{}
}

func (r *consentRepository) Insert(ctx context.Context, q domain.Querier, c *domain.UserConsent) error {
	query := `
        INSERT INTO user_consents (id, tenant_id, user_id, consent_type, version, granted, granted_at, revoked_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := q.ExecContext(ctx, query,
		c.ID,
		c.TenantID,
		c.UserID,
		c.ConsentType,
		c.Version,
		c.Granted,
		c.GrantedAt,
		c.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

// GetCurrent returns the most recently granted consent of the given type.
func (r *consentRepository) GetCurrent(ctx context.Context, q domain.Querier, tenantID string, userID uuid.UUID, consentType string) (*domain.UserConsent, error) {
	query := `
        SELECT id, tenant_id, user_id, consent_type, version, granted, granted_at, revoked_at
        FROM user_consents
        WHERE tenant_id = $1 AND user_id = $2 AND consent_type = $3
        ORDER BY granted_at DESC
        LIMIT 1
    `

	var c domain.UserConsent
	err := q.QueryRowContext(ctx, query, tenantID, userID, consentType).Scan(
		&c.ID,
		&c.TenantID,
		&c.UserID,
		&c.ConsentType,
		&c.Version,
		&c.Granted,
		&c.GrantedAt,
		&c.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get current consent: %w", err)
	}

	return &c, nil
}
