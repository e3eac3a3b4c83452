package mocks

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/nutricare/internal/domain"
)

// MockRunner is an in-memory domain.TenantRunner for testing. Transactions
// are serialized by a mutex, mirroring the row-lock exclusivity the real
// implementation gets from the database.
type MockRunner struct {
	mu        sync.Mutex
	TenantErr error
	TxErr     error
}

func (m *MockRunner) WithTenant(ctx context.Context, tenantID string, fn func(q domain.Querier) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if m.TenantErr != nil {
		return m.TenantErr
	}
	return fn(nil)
}

func (m *MockRunner) WithTransaction(ctx context.Context, tenantID string, fn func(q domain.Querier) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if m.TxErr != nil {
		return m.TxErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(nil)
}

// MockUserRepository is an in-memory domain.UserRepository.
type MockUserRepository struct {
	mu        sync.Mutex
	Users     []*domain.User
	GetErr    error
	InsertErr error
	UpdateErr error
}

func (m *MockUserRepository) GetByExternalID(ctx context.Context, q domain.Querier, tenantID, externalID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Users {
		if u.TenantID == tenantID && u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) GetByID(ctx context.Context, q domain.Querier, tenantID string, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Users {
		if u.TenantID == tenantID && u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) Insert(ctx context.Context, q domain.Querier, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *u
	m.Users = append(m.Users, &cp)
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, q domain.Querier, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i, existing := range m.Users {
		if existing.TenantID == u.TenantID && existing.ID == u.ID {
			cp := *u
			// Mirrors the UPDATE statement, which never writes these.
			cp.ExternalID = existing.ExternalID
			cp.CreatedAt = existing.CreatedAt
			m.Users[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

// MockHealthProfileRepository is an in-memory domain.HealthProfileRepository.
type MockHealthProfileRepository struct {
	mu        sync.Mutex
	Profiles  []*domain.HealthProfile
	GetErr    error
	UpsertErr error
}

func (m *MockHealthProfileRepository) GetByUserID(ctx context.Context, q domain.Querier, tenantID string, userID uuid.UUID) (*domain.HealthProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, p := range m.Profiles {
		if p.TenantID == tenantID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockHealthProfileRepository) Upsert(ctx context.Context, q domain.Querier, p *domain.HealthProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	for i, existing := range m.Profiles {
		if existing.TenantID == p.TenantID && existing.UserID == p.UserID {
			cp := *p
			m.Profiles[i] = &cp
			return nil
		}
	}
	cp := *p
	m.Profiles = append(m.Profiles, &cp)
	return nil
}

// MockFamilyRepository is an in-memory domain.FamilyRepository.
type MockFamilyRepository struct {
	mu        sync.Mutex
	Accounts  []*domain.FamilyAccount
	Members   []*domain.FamilyMember
	InsertErr error
}

func (m *MockFamilyRepository) GetAccountForUpdate(ctx context.Context, q domain.Querier, tenantID string, accountID uuid.UUID) (*domain.FamilyAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Accounts {
		if a.TenantID == tenantID && a.ID == accountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockFamilyRepository) ListMembers(ctx context.Context, q domain.Querier, tenantID string, accountID uuid.UUID) ([]domain.FamilyMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FamilyMember
	for _, fm := range m.Members {
		if fm.TenantID == tenantID && fm.AccountID == accountID {
			out = append(out, *fm)
		}
	}
	return out, nil
}

func (m *MockFamilyRepository) CountMembers(ctx context.Context, q domain.Querier, tenantID string, accountID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, fm := range m.Members {
		if fm.TenantID == tenantID && fm.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *MockFamilyRepository) InsertMember(ctx context.Context, q domain.Querier, fm *domain.FamilyMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *fm
	m.Members = append(m.Members, &cp)
	return nil
}

// MockConsentRepository is an in-memory domain.ConsentRepository.
type MockConsentRepository struct {
	mu        sync.Mutex
	Consents  []*domain.UserConsent
	InsertErr error
}

func (m *MockConsentRepository) Insert(ctx context.Context, q domain.Querier, c *domain.UserConsent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *c
	m.Consents = append(m.Consents, &cp)
	return nil
}

func (m *MockConsentRepository) GetCurrent(ctx context.Context, q domain.Querier, tenantID string, userID uuid.UUID, consentType string) (*domain.UserConsent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.UserConsent
	for _, c := range m.Consents {
		if c.TenantID != tenantID || c.UserID != userID || c.ConsentType != consentType {
			continue
		}
		if latest == nil || c.GrantedAt.After(latest.GrantedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// MockAuditRepository is an in-memory domain.AuditRepository.
type MockAuditRepository struct {
	mu        sync.Mutex
	Entries   []*domain.AuditLogEntry
	InsertErr error
	ListErr   error
}

func (m *MockAuditRepository) Insert(ctx context.Context, q domain.Querier, e *domain.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *e
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, q domain.Querier, tenantID string, p domain.Pagination) ([]domain.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var scoped []domain.AuditLogEntry
	for _, e := range m.Entries {
		if e.TenantID == tenantID {
			scoped = append(scoped, *e)
		}
	}
	if p.Offset >= len(scoped) {
		return nil, nil
	}
	scoped = scoped[p.Offset:]
	if p.Limit > 0 && p.Limit < len(scoped) {
		scoped = scoped[:p.Limit]
	}
	return scoped, nil
}

// ByAction returns the recorded entries whose action matches.
func (m *MockAuditRepository) ByAction(action string) []*domain.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditLogEntry
	for _, e := range m.Entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

// MemoryKV is an in-memory domain.KVStore with real TTL semantics and an
// injectable clock, so expiry tests do not need to sleep. Setting Err makes
// every operation fail, simulating a backing-store outage.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]memEntry
	Now  func() time.Time
	Err  error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]memEntry), Now: time.Now}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	e, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if !m.Now().Before(e.expiresAt) {
		delete(m.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data[key] = memEntry{value: value, expiresAt: m.Now().Add(ttl)}
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryKV) DeletePattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for k := range m.data {
		// Keys contain no slashes, so path glob matching behaves like
		// the Redis MATCH glob for the patterns this system uses.
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryKV) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, 0, m.Err
	}
	now := m.Now()
	e, ok := m.data[key]
	if !ok || !now.Before(e.expiresAt) {
		e = memEntry{count: 0, expiresAt: now.Add(ttl)}
	}
	e.count++
	m.data[key] = e
	return e.count, e.expiresAt.Sub(now), nil
}

// Len reports the number of live entries.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
