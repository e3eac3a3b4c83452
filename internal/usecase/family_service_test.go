package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
	"github.com/user/nutricare/internal/domain/mocks"
)

func newFamilyService(families *mocks.MockFamilyRepository, audits *mocks.MockAuditRepository) *FamilyService {
	return NewFamilyService(&mocks.MockRunner{}, families, audits, testCache(), discard, nil)
}

func seedAccount(families *mocks.MockFamilyRepository, maxMembers int) *domain.FamilyAccount {
	account := &domain.FamilyAccount{
		ID:          uuid.New(),
		TenantID:    "t1",
		OwnerUserID: uuid.New(),
		Name:        "the smiths",
		MaxMembers:  maxMembers,
	}
	families.Accounts = append(families.Accounts, account)
	return account
}

func TestFamilyServiceAddMember(t *testing.T) {
	actor := domain.Actor{ID: "owner-1"}

	t.Run("adds up to capacity then rejects", func(t *testing.T) {
		families := &mocks.MockFamilyRepository{}
		audits := &mocks.MockAuditRepository{}
		svc := newFamilyService(families, audits)
		account := seedAccount(families, 2)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			m := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New()}
			if err := svc.AddMember(ctx, "t1", m, actor); err != nil {
				t.Fatalf("add %d: %v", i+1, err)
			}
		}

		m := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New()}
		err := svc.AddMember(ctx, "t1", m, actor)
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}

		if got := len(audits.ByAction(domain.ActionFamilyMemberAdded)); got != 2 {
			t.Errorf("expected 2 audit rows, got %d", got)
		}
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		svc := newFamilyService(&mocks.MockFamilyRepository{}, &mocks.MockAuditRepository{})

		m := &domain.FamilyMember{AccountID: uuid.New(), UserID: uuid.New()}
		err := svc.AddMember(context.Background(), "t1", m, actor)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("audit failure rolls the add back", func(t *testing.T) {
		families := &mocks.MockFamilyRepository{}
		audits := &mocks.MockAuditRepository{InsertErr: errors.New("audit store down")}
		svc := newFamilyService(families, audits)
		account := seedAccount(families, 2)

		m := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New()}
		err := svc.AddMember(context.Background(), "t1", m, actor)
		if !errors.Is(err, domain.ErrAuditWrite) {
			t.Fatalf("expected ErrAuditWrite, got %v", err)
		}
	})
}

// With K slots free and K+2 concurrent adds, exactly K succeed and the rest
// fail with ErrCapacityExceeded. The mock runner serializes transactions the
// way the row lock does in PostgreSQL.
func TestFamilyServiceCapacityRace(t *testing.T) {
	const k = 3

	families := &mocks.MockFamilyRepository{}
	audits := &mocks.MockAuditRepository{}
	svc := newFamilyService(families, audits)
	account := seedAccount(families, k)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, k+2)
	for i := 0; i < k+2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New()}
			errs[i] = svc.AddMember(ctx, "t1", m, domain.Actor{ID: "owner-1"})
		}(i)
	}
	wg.Wait()

	var ok, capacity int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrCapacityExceeded):
			capacity++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ok != k {
		t.Errorf("successes = %d, want %d", ok, k)
	}
	if capacity != 2 {
		t.Errorf("capacity failures = %d, want 2", capacity)
	}

	n, err := families.CountMembers(ctx, nil, "t1", account.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != k {
		t.Errorf("member count = %d, want %d", n, k)
	}
	if got := len(audits.ByAction(domain.ActionFamilyMemberAdded)); got != k {
		t.Errorf("audit rows = %d, want %d (one per successful add)", got, k)
	}
}

func TestFamilyServiceGetMembers(t *testing.T) {
	families := &mocks.MockFamilyRepository{}
	audits := &mocks.MockAuditRepository{}
	svc := newFamilyService(families, audits)
	account := seedAccount(families, 4)
	ctx := context.Background()
	actor := domain.Actor{ID: "owner-1"}

	m := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New(), CanViewHealthData: true}
	if err := svc.AddMember(ctx, "t1", m, actor); err != nil {
		t.Fatalf("add: %v", err)
	}

	members, err := svc.GetMembers(ctx, "t1", account.ID)
	if err != nil {
		t.Fatalf("get members: %v", err)
	}
	if len(members) != 1 || !members[0].CanViewHealthData {
		t.Errorf("unexpected members: %+v", members)
	}

	t.Run("stale cache is evicted on add", func(t *testing.T) {
		m2 := &domain.FamilyMember{AccountID: account.ID, UserID: uuid.New()}
		if err := svc.AddMember(ctx, "t1", m2, actor); err != nil {
			t.Fatalf("add: %v", err)
		}

		members, err := svc.GetMembers(ctx, "t1", account.ID)
		if err != nil {
			t.Fatalf("get members: %v", err)
		}
		if len(members) != 2 {
			t.Errorf("member list is stale: got %d members, want 2", len(members))
		}
	})
}
