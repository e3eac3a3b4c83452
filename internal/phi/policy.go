package phi

import (
	"encoding/json"
	"fmt"

	"github.com/user/nutricare/internal/domain"
)

// Tier-gated health profile fields. Only premium readers ever see these;
// the gate strips them for everyone else regardless of where the record
// came from (fresh query or cache).
var gatedFields = map[string]struct{}{
	"lab_values":     {},
	"biometric_data": {},
	"clinical_notes": {},
}

// Allowed reports whether a tier may read the named profile field.
func Allowed(tier domain.SubscriptionTier, field string) bool {
	if _, gated := gatedFields[field]; !gated {
		return true
	}
	return tier == domain.TierPremium
}

// Filter applies the tier policy to a health profile and returns the record
// as a field map. Gated keys are absent, not null, for non-premium readers.
// This is the single enforcement point for every profile read path; the
// cache never substitutes for it.
func Filter(tier domain.SubscriptionTier, p *domain.HealthProfile) (map[string]any, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown subscription tier %q", domain.ErrValidation, tier)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal health profile: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal health profile: %w", err)
	}

	if tier != domain.TierPremium {
		for field := range gatedFields {
			delete(record, field)
		}
	}

	return record, nil
}
