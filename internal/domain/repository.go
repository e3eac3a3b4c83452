package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Querier is the subset of database/sql satisfied by *sql.DB, *sql.Conn and
// *sql.Tx. Repositories take it explicitly so the same query code runs on a
// tenant-scoped connection or inside a transaction, and no repository ever
// holds a connection of its own.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TenantRunner scopes work to one tenant. Every callback receives a
// connection checked out for the duration of the call and released on all
// exit paths; an empty tenant id is rejected before any I/O.
type TenantRunner interface {
	// WithTenant checks out one pooled connection for the callback.
	WithTenant(ctx context.Context, tenantID string, fn func(q Querier) error) error

	// WithTransaction runs the callback in one atomic transaction on a
	// tenant-scoped connection. Commit only if fn returns nil; full
	// rollback otherwise, including on panic and cancellation.
	WithTransaction(ctx context.Context, tenantID string, fn func(q Querier) error) error
}

// UserRepository persists users. All queries filter by tenant id.
type UserRepository interface {
	GetByExternalID(ctx context.Context, q Querier, tenantID, externalID string) (*User, error)
	GetByID(ctx context.Context, q Querier, tenantID string, id uuid.UUID) (*User, error)
	Insert(ctx context.Context, q Querier, u *User) error
	Update(ctx context.Context, q Querier, u *User) error
}

// HealthProfileRepository persists health profiles.
type HealthProfileRepository interface {
	GetByUserID(ctx context.Context, q Querier, tenantID string, userID uuid.UUID) (*HealthProfile, error)
	Upsert(ctx context.Context, q Querier, p *HealthProfile) error
}

// FamilyRepository persists family accounts and members. GetAccountForUpdate
// takes a row lock so a capacity check and the subsequent insert are
// race-free within one transaction.
type FamilyRepository interface {
	GetAccountForUpdate(ctx context.Context, q Querier, tenantID string, accountID uuid.UUID) (*FamilyAccount, error)
	ListMembers(ctx context.Context, q Querier, tenantID string, accountID uuid.UUID) ([]FamilyMember, error)
	CountMembers(ctx context.Context, q Querier, tenantID string, accountID uuid.UUID) (int, error)
	InsertMember(ctx context.Context, q Querier, m *FamilyMember) error
}

// ConsentRepository persists consent records.
type ConsentRepository interface {
	Insert(ctx context.Context, q Querier, c *UserConsent) error
	GetCurrent(ctx context.Context, q Querier, tenantID string, userID uuid.UUID, consentType string) (*UserConsent, error)
}

// AuditRepository persists audit log entries. Insert is append-only; there
// is deliberately no update or delete.
type AuditRepository interface {
	Insert(ctx context.Context, q Querier, e *AuditLogEntry) error
	List(ctx context.Context, q Querier, tenantID string, p Pagination) ([]AuditLogEntry, error)
}

// KVStore is the networked key-value backing for the cache layer and the
// rate limiter. Implementations classify connectivity failures as
// ErrTransientStore so callers can decide between failing open and closed.
type KVStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes all keys matching a glob pattern and returns
	// the number removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// IncrWithTTL atomically increments key, starting a TTL window on
	// first increment, and returns the new count and the time remaining
	// in the window.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}
