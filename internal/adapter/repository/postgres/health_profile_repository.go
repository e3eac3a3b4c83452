package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/user/nutricare/internal/domain"
)

type healthProfileRepository struct{}

// NewHealthProfileRepository creates a PostgreSQL-backed health profile
// repository.
func NewHealthProfileRepository() domain.HealthProfileRepository {
	return &healthProfileRepository{}
}

func (r *healthProfileRepository) GetByUserID(ctx context.Context, q domain.Querier, tenantID string, userID uuid.UUID) (*domain.HealthProfile, error) {
	query := `
        SELECT id, tenant_id, user_id, demographics, allergies, medications,
               conditions, lab_values, biometric_data, clinical_notes,
               created_at, updated_at
        FROM health_profiles
        WHERE tenant_id = $1 AND user_id = $2
    `

	var p domain.HealthProfile
	err := q.QueryRowContext(ctx, query, tenantID, userID).Scan(
		&p.ID,
		&p.TenantID,
		&p.UserID,
		&p.Demographics,
		pq.Array(&p.Allergies),
		pq.Array(&p.Medications),
		pq.Array(&p.Conditions),
		&p.LabValues,
		&p.BiometricData,
		&p.ClinicalNotes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get health profile: %w", err)
	}

	return &p, nil
}

func (r *healthProfileRepository) Upsert(ctx context.Context, q domain.Querier, p *domain.HealthProfile) error {
	query := `
        INSERT INTO health_profiles (
            id, tenant_id, user_id, demographics, allergies, medications,
            conditions, lab_values, biometric_data, clinical_notes,
            created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (tenant_id, user_id) DO UPDATE SET
            demographics = EXCLUDED.demographics,
            allergies = EXCLUDED.allergies,
            medications = EXCLUDED.medications,
            conditions = EXCLUDED.conditions,
            lab_values = EXCLUDED.lab_values,
            biometric_data = EXCLUDED.biometric_data,
            clinical_notes = EXCLUDED.clinical_notes,
            updated_at = EXCLUDED.updated_at
    `
	_, err := q.ExecContext(ctx, query,
		p.ID,
		p.TenantID,
		p.UserID,
		nullableJSON(p.Demographics),
		pq.Array(p.Allergies),
		pq.Array(p.Medications),
		pq.Array(p.Conditions),
		nullableJSON(p.LabValues),
		nullableJSON(p.BiometricData),
		p.ClinicalNotes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert health profile: %w", err)
	}
	return nil
}

// nullableJSON maps an empty RawMessage to SQL NULL rather than the invalid
// empty JSONB literal.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
