package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

// CaseStore implements ports.CaseStore in memory.
// Phone and identity number are unique across registrations.
type CaseStore struct {
	mu         sync.RWMutex
	users      map[string]domain.FinalizedUser // by ID
	complaints map[string]domain.FinalizedComplaint
	frozen     []domain.FrozenAccount
}

// NewCaseStore creates an empty case store.
func NewCaseStore() *CaseStore {
	return &CaseStore{
		users:      make(map[string]domain.FinalizedUser),
		complaints: make(map[string]domain.FinalizedComplaint),
	}
}

// SaveRegistration stores the user, rejecting a reused phone or identity number.
func (s *CaseStore) SaveRegistration(ctx context.Context, u domain.FinalizedUser) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if u.IdentityNumber != "" && existing.IdentityNumber == u.IdentityNumber {
			return "", &domain.DuplicateRecordError{Field: "identityNumber"}
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return "", &domain.DuplicateRecordError{Field: "phone"}
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u.ID, nil
}

// SaveComplaint stores the complaint under its case ID.
func (s *CaseStore) SaveComplaint(ctx context.Context, c domain.FinalizedComplaint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.complaints[c.CaseID]; dup {
		return "", &domain.DuplicateRecordError{Field: "caseId"}
	}
	c.Evidence = append([]domain.SubmittedEvidence(nil), c.Evidence...)
	s.complaints[c.CaseID] = c
	return c.CaseID, nil
}

// FindUserByPhone returns the user registered with phone.
func (s *CaseStore) FindUserByPhone(ctx context.Context, phone string) (domain.FinalizedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return domain.FinalizedUser{}, domain.ErrNotFound
}

// LookupCase returns the status of a stored complaint.
func (s *CaseStore) LookupCase(ctx context.Context, caseID string) (domain.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[strings.ToUpper(caseID)]
	if !ok {
		return domain.CaseRecord{}, domain.ErrNotFound
	}
	return domain.CaseRecord{
		CaseID:       c.CaseID,
		Category:     c.Category,
		FraudTypeKey: c.FraudTypeKey,
		Status:       "Registered",
		Evidence:     len(c.Evidence),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.CreatedAt,
	}, nil
}

// AddFrozenAccount seeds a freeze record.
func (s *CaseStore) AddFrozenAccount(a domain.FrozenAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = append(s.frozen, a)
}

// LookupFrozenAccount matches the account number or holder phone.
func (s *CaseStore) LookupFrozenAccount(ctx context.Context, query string) (domain.FrozenAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.frozen {
		if a.AccountNumber == query || a.HolderPhone == query {
			return a, nil
		}
	}
	return domain.FrozenAccount{}, domain.ErrNotFound
}

// Complaints returns a copy of every stored complaint.
func (s *CaseStore) Complaints() []domain.FinalizedComplaint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FinalizedComplaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		out = append(out, c)
	}
	return out
}

// Users returns a copy of every registered user.
func (s *CaseStore) Users() []domain.FinalizedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FinalizedUser, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}
