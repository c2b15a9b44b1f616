/**
 * @description
 * This file defines the interface for the data access layer. Application
 * logic depends on this interface, not on the concrete PostgreSQL
 * implementation, which keeps the service testable with an in-memory
 * repository.
 */
package store

import (
	"context"
	"errors"

	"github.com/rakib33/Registration/internal/domain"
)

var (
	// ErrNotFound is returned when no account matches the given IC number.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateICNumber is returned when an insert collides with the
	// unique constraint on the IC number. The service-level existence check
	// is advisory only; this error is the authoritative uniqueness signal.
	ErrDuplicateICNumber = errors.New("account with this IC number already exists")
)

// AccountRepository defines the contract for account persistence.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByICNumber(ctx context.Context, icNumber string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, account *domain.Account) error
}
