package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier gates which health profile fields a reader may see.
type SubscriptionTier string

const (
	TierBasic    SubscriptionTier = "basic"
	TierEnhanced SubscriptionTier = "enhanced"
	TierPremium  SubscriptionTier = "premium"
)

// Valid reports whether t is a known tier.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierBasic, TierEnhanced, TierPremium:
		return true
	}
	return false
}

// User is an identity within a tenant. Users are soft-disabled via IsActive
// rather than deleted.
type User struct {
	ID                  uuid.UUID        `json:"id"`
	TenantID            string           `json:"tenant_id"`
	ExternalID          string           `json:"external_id"`
	Email               string           `json:"email"`
	FullName            string           `json:"full_name"`
	SubscriptionTier    SubscriptionTier `json:"subscription_tier"`
	FailedLoginAttempts int              `json:"failed_login_attempts"`
	AccountLockedUntil  *time.Time       `json:"account_locked_until,omitempty"`
	IsActive            bool             `json:"is_active"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Locked reports whether the account is currently locked out.
func (u *User) Locked(now time.Time) bool {
	return u.AccountLockedUntil != nil && now.Before(*u.AccountLockedUntil)
}
