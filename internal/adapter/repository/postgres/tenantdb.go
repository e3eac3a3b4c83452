package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/nutricare/internal/domain"
)

// TenantDB implements domain.TenantRunner over a bounded *sql.DB pool.
// Each call checks out a dedicated connection so no two tenants ever share
// in-flight session or transaction state, and connections are never cached
// across calls.
type TenantDB struct {
	db              *sql.DB
	logger          *slog.Logger
	checkoutTimeout time.Duration
}

// NewTenantDB wires a TenantDB. checkoutTimeout bounds how long a caller
// waits for a pooled connection when the pool is exhausted; zero means the
// caller's context alone governs the wait.
func NewTenantDB(db *sql.DB, logger *slog.Logger, checkoutTimeout time.Duration) *TenantDB {
	return &TenantDB{
		db:              db,
		logger:          logger.With("component", "tenant_db"),
		checkoutTimeout: checkoutTimeout,
	}
}

// WithTenant checks out one pooled connection, runs fn against it, and
// releases it on every exit path, including panic.
func (t *TenantDB) WithTenant(ctx context.Context, tenantID string, fn func(q domain.Querier) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}

	conn, err := t.checkout(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

// WithTransaction begins one atomic transaction on a tenant-scoped
// connection. The transaction commits only if fn returns nil; any error,
// panic, or cancellation rolls it back fully.
func (t *TenantDB) WithTransaction(ctx context.Context, tenantID string, fn func(q domain.Querier) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}

	conn, err := t.checkout(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for tenant %s: %w", tenantID, err)
	}
	defer tx.Rollback() // Rollback is a no-op if Commit() is called

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx for tenant %s: %w", tenantID, err)
	}
	return nil
}

// checkout borrows a connection from the pool, blocking until one is free or
// the checkout timeout or caller's deadline expires.
func (t *TenantDB) checkout(ctx context.Context) (*sql.Conn, error) {
	waitCtx := ctx
	if t.checkoutTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, t.checkoutTimeout)
		defer cancel()
	}

	conn, err := t.db.Conn(waitCtx)
	if err != nil {
		t.logger.Error("connection checkout failed", "error", err)
		return nil, fmt.Errorf("%w: connection checkout: %v", domain.ErrTransientStore, err)
	}
	return conn, nil
}
