package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HealthProfile holds one user's health record. Demographics, allergies,
// medications and conditions are visible to every tier; lab values,
// biometric data and clinical notes are tier-gated and only returned to
// premium readers after passing the PHI gate.
type HealthProfile struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      string          `json:"tenant_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Demographics  json.RawMessage `json:"demographics"`
	Allergies     []string        `json:"allergies"`
	Medications   []string        `json:"medications"`
	Conditions    []string        `json:"conditions"`
	LabValues     json.RawMessage `json:"lab_values"`
	BiometricData json.RawMessage `json:"biometric_data"`
	ClinicalNotes string          `json:"clinical_notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
