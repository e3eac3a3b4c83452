package domain

import (
	"time"

	"github.com/google/uuid"
)

// FamilyAccount owns a bounded set of FamilyMembers. The member count never
// exceeds MaxMembers; the check and the insert run in one transaction.
type FamilyAccount struct {
	ID          uuid.UUID `json:"id"`
	TenantID    string    `json:"tenant_id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Name        string    `json:"name"`
	MaxMembers  int       `json:"max_members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FamilyMember links a user to a family account with permission flags.
type FamilyMember struct {
	ID                uuid.UUID `json:"id"`
	TenantID          string    `json:"tenant_id"`
	AccountID         uuid.UUID `json:"account_id"`
	UserID            uuid.UUID `json:"user_id"`
	CanViewHealthData bool      `json:"can_view_health_data"`
	CanManageMeals    bool      `json:"can_manage_meals"`
	CreatedAt         time.Time `json:"created_at"`
}
