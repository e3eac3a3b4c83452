package domain

import "errors"

// Error taxonomy for the data access layer. Callers match with errors.Is;
// repositories and services wrap these with context via fmt.Errorf("%w: ...").
var (
	// ErrValidation indicates malformed input (empty tenant or user id).
	// Rejected before any I/O is performed.
	ErrValidation = errors.New("validation error")

	// ErrTenantIsolation indicates a cross-tenant access attempt, such as a
	// cache entry whose embedded tenant tag does not match the requesting
	// tenant. The foreign tenant's data is never surfaced.
	ErrTenantIsolation = errors.New("tenant isolation violation")

	// ErrCapacityExceeded indicates a bounded collection (family members)
	// is full. Surfaced to callers as a normal business error.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrNotFound indicates the resource is absent within the caller's
	// tenant scope. Deliberately indistinguishable from "exists in another
	// tenant" to avoid cross-tenant existence leakage.
	ErrNotFound = errors.New("not found")

	// ErrTransientStore indicates a cache or store connectivity failure.
	// Database paths fail closed (propagate); the rate limiter fails open.
	ErrTransientStore = errors.New("transient store error")

	// ErrAuditWrite indicates audit persistence failed during a regulated
	// mutation. The enclosing transaction rolls back rather than allowing
	// an unaudited change.
	ErrAuditWrite = errors.New("audit write failure")
)
