package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/domain"
)

// Well-known cache namespaces. The TTL policy keys off these; unknown
// namespaces fall back to the default TTL.
const (
	NamespaceSession   = "session"
	NamespaceReference = "reference"
	NamespaceHealth    = "health"
	NamespaceUser      = "user"
	NamespaceFamily    = "family"
)

// TTLPolicy maps a data class to how long its entries may live. Health and
// profile-adjacent classes stay short to bound staleness and exposure.
type TTLPolicy struct {
	Session   time.Duration
	Reference time.Duration
	Health    time.Duration
	Default   time.Duration
}

// envelope is the serialized cache record. The embedded tenant tag is
// re-verified on every read; a mismatch is treated as a miss and reported,
// never returned.
type envelope struct {
	TenantID string          `json:"tenant_id"`
	CachedAt time.Time       `json:"cached_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Cache is the tenant-namespaced layer over the key-value store. It is never
// a system of record: every entry is reconstructible from the relational
// store, and the system remains correct if the cache is flushed at any time.
type Cache struct {
	store   domain.KVStore
	logger  *slog.Logger
	metrics *metrics.DataMetrics
	policy  TTLPolicy
}

// New creates a tenant cache. metrics may be nil in tests.
func New(store domain.KVStore, logger *slog.Logger, m *metrics.DataMetrics, policy TTLPolicy) *Cache {
	return &Cache{
		store:   store,
		logger:  logger.With("component", "tenant_cache"),
		metrics: m,
		policy:  policy,
	}
}

// Key builds the canonical cache key for a tenant-scoped entry.
func Key(tenantID, namespace, id string) string {
	return fmt.Sprintf("tenant:%s:%s:%s", tenantID, namespace, id)
}

// TTLFor resolves the policy TTL for a namespace.
func (c *Cache) TTLFor(namespace string) time.Duration {
	switch namespace {
	case NamespaceSession:
		return c.policy.Session
	case NamespaceReference:
		return c.policy.Reference
	case NamespaceHealth, NamespaceUser, NamespaceFamily:
		return c.policy.Health
	default:
		return c.policy.Default
	}
}

// Set serializes value with its tenant tag and stores it under the
// namespace's policy TTL.
func (c *Cache) Set(ctx context.Context, tenantID, namespace, id string, value any) error {
	return c.SetTTL(ctx, tenantID, namespace, id, value, c.TTLFor(namespace))
}

// SetTTL is Set with an explicit TTL.
func (c *Cache) SetTTL(ctx context.Context, tenantID, namespace, id string, value any, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}
	raw, err := json.Marshal(envelope{
		TenantID: tenantID,
		CachedAt: time.Now().UTC(),
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("marshal cache envelope: %w", err)
	}

	return c.store.Set(ctx, Key(tenantID, namespace, id), raw, ttl)
}

// Get loads an entry into dest and reports whether it was a hit. An entry
// whose embedded tenant tag does not match the requesting tenant is treated
// as a miss and reported as an isolation violation; the foreign payload is
// never deserialized into dest.
func (c *Cache) Get(ctx context.Context, tenantID, namespace, id string, dest any) (bool, error) {
	if tenantID == "" {
		return false, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}

	key := Key(tenantID, namespace, id)
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		if c.metrics != nil {
			c.metrics.CacheMisses.Inc()
		}
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", key, "error", err)
		_ = c.store.Delete(ctx, key)
		return false, nil
	}

	if env.TenantID != tenantID {
		c.logger.Error("cache tenant tag mismatch",
			"key", key,
			"requested_tenant", tenantID,
			"error", domain.ErrTenantIsolation,
		)
		if c.metrics != nil {
			c.metrics.IsolationViolations.Inc()
		}
		// Evict the poisoned entry so it cannot be served to anyone.
		_ = c.store.Delete(ctx, key)
		return false, nil
	}

	if err := json.Unmarshal(env.Payload, dest); err != nil {
		return false, fmt.Errorf("unmarshal cache payload: %w", err)
	}
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
	return true, nil
}

// Delete removes one entry.
func (c *Cache) Delete(ctx context.Context, tenantID, namespace, id string) error {
	return c.store.Delete(ctx, Key(tenantID, namespace, id))
}

// Invalidate evicts all entries matching a raw key pattern.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	return c.store.DeletePattern(ctx, pattern)
}

// InvalidateTenant evicts every entry belonging to one tenant.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) (int, error) {
	return c.store.DeletePattern(ctx, fmt.Sprintf("tenant:%s:*", tenantID))
}

// InvalidateUser evicts a user's entries across all namespaces. Called after
// any mutation of the user row so stale identity data is never served.
func (c *Cache) InvalidateUser(ctx context.Context, tenantID, userID string) (int, error) {
	return c.store.DeletePattern(ctx, fmt.Sprintf("tenant:%s:*:%s", tenantID, userID))
}

// InvalidateHealth evicts a user's health entries. Called after any profile
// mutation so stale PHI is never served.
func (c *Cache) InvalidateHealth(ctx context.Context, tenantID, userID string) (int, error) {
	return c.store.DeletePattern(ctx, fmt.Sprintf("tenant:%s:%s:%s", tenantID, NamespaceHealth, userID))
}
