package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions. Read audits ("*.viewed") are distinct from mutation audits
// so that PHI access trails and change trails can be queried separately.
const (
	ActionUserCreated          = "user.created"
	ActionUserUpdated          = "user.updated"
	ActionUserLoginSucceeded   = "user.login_succeeded"
	ActionUserLoginFailed      = "user.login_failed"
	ActionHealthProfileViewed  = "health_profile.viewed"
	ActionHealthProfileUpdated = "health_profile.updated"
	ActionFamilyMemberAdded    = "family_member.added"
	ActionConsentRecorded      = "consent.recorded"
	ActionAuditLogViewed       = "audit_log.viewed"
)

// AuditLogEntry is an immutable record of who did what to which resource.
// Entries are created only as a side effect of a tracked operation and are
// never updated or deleted by application code.
type AuditLogEntry struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     string          `json:"tenant_id"`
	ActorID      string          `json:"actor_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	OldValues    json.RawMessage `json:"old_values,omitempty"`
	NewValues    json.RawMessage `json:"new_values,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Actor identifies the caller of a tracked operation for audit purposes.
type Actor struct {
	ID        string
	IPAddress string
	UserAgent string
}

// Pagination bounds a list query.
type Pagination struct {
	Limit  int
	Offset int
}
