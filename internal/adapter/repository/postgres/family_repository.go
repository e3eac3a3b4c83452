package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
)

type familyRepository struct{}

// NewFamilyRepository creates a PostgreSQL-backed family repository.
func NewFamilyRepository() domain.FamilyRepository {
	return &familyRepository{}
}

// GetAccountForUpdate locks the account row for the rest of the enclosing
// transaction, so a capacity check followed by an insert cannot race with a
// concurrent add on the same account.
func (r *familyRepository) GetAccountForUpdate(ctx context.Context, q domain.Querier, tenantID string, accountID uuid.UUID) (*domain.FamilyAccount, error) {
	query := `
        SELECT id, tenant_id, owner_user_id, name, max_members, created_at, updated_at
        FROM family_accounts
        WHERE tenant_id = $1 AND id = $2
        FOR UPDATE
    `

	var a domain.FamilyAccount
	err := q.QueryRowContext(ctx, query, tenantID, accountID).Scan(
		&a.ID,
		&a.TenantID,
		&a.OwnerUserID,
		&a.Name,
		&a.MaxMembers,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get family account for update: %w", err)
	}

	return &a, nil
}

func (r *familyRepository) ListMembers(ctx context.Context, q domain.Querier, tenantID string, accountID uuid.UUID) ([]domain.FamilyMember, error) {
	query := `
        SELECT id, tenant_id, account_id, user_id, can_view_health_data, can_manage_meals, created_at
        FROM family_members
        WHERE tenant_id = $1 AND account_id = $2
        ORDER BY created_at
    `

	rows, err := q.QueryContext(ctx, query, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []domain.FamilyMember
	for rows.Next() {
		var m domain.FamilyMember
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.AccountID,
			&m.UserID,
			&m.CanViewHealthData,
			&m.CanManageMeals,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate family members: %w", err)
	}

	return members, nil
}

func (r *familyRepository) CountMembers(ctx context.Context, q domain.Querier, tenantID string, accountID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM family_members WHERE tenant_id = $1 AND account_id = $2`

	var n int
	if err := q.QueryRowContext(ctx, query, tenantID, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count family members: %w", err)
	}
	return n, nil
}

func (r *familyRepository) InsertMember(ctx context.Context, q domain.Querier, m *domain.FamilyMember) error {
	query := `
        INSERT INTO family_members (id, tenant_id, account_id, user_id, can_view_health_data, can_manage_meals, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := q.ExecContext(ctx, query,
		m.ID,
		m.TenantID,
		m.AccountID,
		m.UserID,
		m.CanViewHealthData,
		m.CanManageMeals,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert family member: %w", err)
	}
	return nil
}
