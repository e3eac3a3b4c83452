package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
)

type userRepository struct{}

// NewUserRepository creates a PostgreSQL-backed user repository. Every query
// filters by tenant_id, so a row in another tenant is indistinguishable from
// an absent row.
func NewUserRepository() domain.UserRepository {
	return &userRepository{}
}

const userColumns = `id, tenant_id, external_id, email, full_name, subscription_tier,
    failed_login_attempts, account_locked_until, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.ExternalID,
		&u.Email,
		&u.FullName,
		&u.SubscriptionTier,
		&u.FailedLoginAttempts,
		&u.AccountLockedUntil,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, q domain.Querier, tenantID, externalID string) (*domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE tenant_id = $1 AND external_id = $2
    `
	return scanUser(q.QueryRowContext(ctx, query, tenantID, externalID))
}

func (r *userRepository) GetByID(ctx context.Context, q domain.Querier, tenantID string, id uuid.UUID) (*domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE tenant_id = $1 AND id = $2
    `
	return scanUser(q.QueryRowContext(ctx, query, tenantID, id))
}

func (r *userRepository) Insert(ctx context.Context, q domain.Querier, u *domain.User) error {
	query := `
        INSERT INTO users (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := q.ExecContext(ctx, query,
		u.ID,
		u.TenantID,
		u.ExternalID,
		u.Email,
		u.FullName,
		u.SubscriptionTier,
		u.FailedLoginAttempts,
		u.AccountLockedUntil,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, q domain.Querier, u *domain.User) error {
	query := `
        UPDATE users
        SET email = $3, full_name = $4, subscription_tier = $5,
            failed_login_attempts = $6, account_locked_until = $7,
            is_active = $8, updated_at = $9
        WHERE tenant_id = $1 AND id = $2
    `
	res, err := q.ExecContext(ctx, query,
		u.TenantID,
		u.ID,
		u.Email,
		u.FullName,
		u.SubscriptionTier,
		u.FailedLoginAttempts,
		u.AccountLockedUntil,
		u.IsActive,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
