package phi

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
)

func fullProfile() *domain.HealthProfile {
	return &domain.HealthProfile{
		ID:            uuid.New(),
		TenantID:      "t1",
		UserID:        uuid.New(),
		Demographics:  json.RawMessage(`{"age":42}`),
		Allergies:     []string{"peanuts"},
		Medications:   []string{"metformin"},
		Conditions:    []string{"type-2 diabetes"},
		LabValues:     json.RawMessage(`{"a1c":6.1}`),
		BiometricData: json.RawMessage(`{"resting_hr":62}`),
		ClinicalNotes: "stable, continue current plan",
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name      string
		tier      domain.SubscriptionTier
		wantGated bool
		expectErr bool
	}{
		{name: "basic strips gated fields", tier: domain.TierBasic, wantGated: false},
		{name: "enhanced strips gated fields", tier: domain.TierEnhanced, wantGated: false},
		{name: "premium retains all fields", tier: domain.TierPremium, wantGated: true},
		{name: "unknown tier rejected", tier: domain.SubscriptionTier("platinum"), expectErr: true},
	}

	gated := []string{"lab_values", "biometric_data", "clinical_notes"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Filter(tt.tier, fullProfile())

			if tt.expectErr {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			for _, field := range gated {
				_, present := record[field]
				if present != tt.wantGated {
					t.Errorf("field %q present = %v, want %v", field, present, tt.wantGated)
				}
			}

			// Baseline fields are visible to every tier.
			for _, field := range []string{"allergies", "medications", "conditions", "demographics"} {
				if _, ok := record[field]; !ok {
					t.Errorf("baseline field %q missing", field)
				}
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	if Allowed(domain.TierBasic, "lab_values") {
		t.Error("basic tier must not read lab_values")
	}
	if !Allowed(domain.TierBasic, "allergies") {
		t.Error("basic tier must read allergies")
	}
	if !Allowed(domain.TierPremium, "clinical_notes") {
		t.Error("premium tier must read clinical_notes")
	}
}
