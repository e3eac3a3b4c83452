package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
	"github.com/user/nutricare/internal/domain/mocks"
)

func newConsentService(consents *mocks.MockConsentRepository, audits *mocks.MockAuditRepository) *ConsentService {
	return NewConsentService(&mocks.MockRunner{}, consents, audits, discard, nil)
}

func TestConsentService(t *testing.T) {
	consents := &mocks.MockConsentRepository{}
	audits := &mocks.MockAuditRepository{}
	svc := newConsentService(consents, audits)
	ctx := context.Background()
	actor := domain.Actor{ID: "u1"}
	userID := uuid.New()

	t.Run("no consent on record", func(t *testing.T) {
		ok, err := svc.HasCurrentConsent(ctx, "t1", userID, "data_processing", "v2")
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if ok {
			t.Error("expected no current consent")
		}
	})

	t.Run("recorded consent is current and audited", func(t *testing.T) {
		c := &domain.UserConsent{UserID: userID, ConsentType: "data_processing", Version: "v2", Granted: true}
		if err := svc.RecordConsent(ctx, "t1", c, actor); err != nil {
			t.Fatalf("record: %v", err)
		}

		ok, err := svc.HasCurrentConsent(ctx, "t1", userID, "data_processing", "v2")
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !ok {
			t.Error("expected current consent")
		}
		if got := len(audits.ByAction(domain.ActionConsentRecorded)); got != 1 {
			t.Errorf("audit rows = %d, want 1", got)
		}
	})

	t.Run("stale version is not current", func(t *testing.T) {
		ok, err := svc.HasCurrentConsent(ctx, "t1", userID, "data_processing", "v3")
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if ok {
			t.Error("v2 consent must not satisfy a v3 requirement")
		}
	})

	t.Run("withdrawal supersedes the grant", func(t *testing.T) {
		revoked := time.Now().UTC()
		withdrawal := &domain.UserConsent{
			UserID:      userID,
			ConsentType: "data_processing",
			Version:     "v2",
			Granted:     false,
			GrantedAt:   revoked.Add(time.Second),
			RevokedAt:   &revoked,
		}
		if err := svc.RecordConsent(ctx, "t1", withdrawal, actor); err != nil {
			t.Fatalf("record withdrawal: %v", err)
		}

		ok, err := svc.HasCurrentConsent(ctx, "t1", userID, "data_processing", "v2")
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if ok {
			t.Error("withdrawn consent must not be current")
		}
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		ok, err := svc.HasCurrentConsent(ctx, "t2", userID, "data_processing", "v2")
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if ok {
			t.Error("consent must be tenant-scoped")
		}
	})

	t.Run("validation", func(t *testing.T) {
		err := svc.RecordConsent(ctx, "t1", &domain.UserConsent{UserID: userID}, actor)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
