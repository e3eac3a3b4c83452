package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserConsent records a user's agreement to a specific version of a consent
// document (data processing, data sharing, research participation).
type UserConsent struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    string     `json:"tenant_id"`
	UserID      uuid.UUID  `json:"user_id"`
	ConsentType string     `json:"consent_type"`
	Version     string     `json:"version"`
	Granted     bool       `json:"granted"`
	GrantedAt   time.Time  `json:"granted_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Current reports whether this consent satisfies the required document
// version: granted, not revoked, and matching the version in force.
func (c *UserConsent) Current(requiredVersion string) bool {
	return c.Granted && c.RevokedAt == nil && c.Version == requiredVersion
}
