package store

import (
	"context"
	"sync"

	"github.com/rakib33/Registration/internal/domain"
)

// MemoryAccountRepository is an in-memory AccountRepository used in tests
// and local development. It enforces the same IC-number uniqueness as the
// PostgreSQL implementation.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account // keyed by IC number
}

// NewMemoryAccountRepository creates an empty in-memory repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]domain.Account)}
}

// CreateAccount stores a new account, rejecting duplicate IC numbers.
func (r *MemoryAccountRepository) CreateAccount(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.ICNumber]; exists {
		return ErrDuplicateICNumber
	}
	r.accounts[account.ICNumber] = cloneAccount(account)
	return nil
}

// FindAccountByICNumber returns a copy of the stored account, so callers
// can mutate the result without touching the stored state.
func (r *MemoryAccountRepository) FindAccountByICNumber(_ context.Context, icNumber string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, exists := r.accounts[icNumber]
	if !exists {
		return nil, ErrNotFound
	}
	copied := cloneAccount(&stored)
	return &copied, nil
}

// UpdateAccount replaces the stored account matching the given ID.
func (r *MemoryAccountRepository) UpdateAccount(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ic, stored := range r.accounts {
		if stored.ID == account.ID {
			r.accounts[ic] = cloneAccount(account)
			return nil
		}
	}
	return ErrNotFound
}

// Len reports how many accounts are stored.
func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// cloneAccount deep-copies an account, including its pointer fields.
func cloneAccount(a *domain.Account) domain.Account {
	copied := *a
	if a.VerificationCode != nil {
		code := *a.VerificationCode
		copied.VerificationCode = &code
	}
	if a.VerificationCodeExpiry != nil {
		expiry := *a.VerificationCodeExpiry
		copied.VerificationCodeExpiry = &expiry
	}
	if a.PinHash != nil {
		hash := *a.PinHash
		copied.PinHash = &hash
	}
	if a.UpdatedAt != nil {
		updated := *a.UpdatedAt
		copied.UpdatedAt = &updated
	}
	return copied
}
