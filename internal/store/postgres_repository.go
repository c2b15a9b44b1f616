/**
 * @description
 * PostgreSQL implementation of the AccountRepository. It owns all SQL for
 * the `accounts` table and translates driver-level errors into the
 * repository's sentinel errors so that callers never see SQLSTATEs.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pool.
 */
package store

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rakib33/Registration/internal/domain"
)

// PostgresAccountRepository is the PostgreSQL implementation of AccountRepository.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository.
func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `id, customer_name, ic_number, mobile_number, email_address,
	is_verified, verification_code, verification_code_expiry,
	privacy_policy_agreed, pin_hash, is_biometric_set, created_at, updated_at`

// CreateAccount inserts a new account row. A unique-constraint violation on
// the IC number is reported as ErrDuplicateICNumber; two racing inserts for
// the same IC number are serialized here by the database, so the loser of
// the race gets the same outcome as a plain duplicate registration.
func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
        INSERT INTO accounts (id, customer_name, ic_number, mobile_number, email_address,
            is_verified, verification_code, verification_code_expiry,
            privacy_policy_agreed, pin_hash, is_biometric_set, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.CustomerName,
		account.ICNumber,
		account.MobileNumber,
		account.EmailAddress,
		account.IsVerified,
		account.VerificationCode,
		account.VerificationCodeExpiry,
		account.PrivacyPolicyAgreed,
		account.PinHash,
		account.IsBiometricSet,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		mapped := mapInsertError(err)
		if errors.Is(mapped, ErrDuplicateICNumber) {
			log.Printf("level=warn component=store msg=\"duplicate ic_number rejected by unique constraint\" ic_number=%s", account.ICNumber)
		} else {
			log.Printf("Error inserting account into database: %v", err)
		}
		return mapped
	}
	return nil
}

// FindAccountByICNumber retrieves an account by its IC number.
func (r *PostgresAccountRepository) FindAccountByICNumber(ctx context.Context, icNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ic_number = $1`

	var account domain.Account
	err := r.db.QueryRow(ctx, query, icNumber).Scan(
		&account.ID,
		&account.CustomerName,
		&account.ICNumber,
		&account.MobileNumber,
		&account.EmailAddress,
		&account.IsVerified,
		&account.VerificationCode,
		&account.VerificationCodeExpiry,
		&account.PrivacyPolicyAgreed,
		&account.PinHash,
		&account.IsBiometricSet,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Printf("Error fetching account by ic_number: %v", err)
		return nil, err
	}
	return &account, nil
}

// UpdateAccount persists the mutable fields of an existing account.
func (r *PostgresAccountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
        UPDATE accounts
        SET is_verified = $1,
            verification_code = $2,
            verification_code_expiry = $3,
            privacy_policy_agreed = $4,
            pin_hash = $5,
            is_biometric_set = $6,
            updated_at = $7
        WHERE id = $8
    `
	commandTag, err := r.db.Exec(ctx, query,
		account.IsVerified,
		account.VerificationCode,
		account.VerificationCodeExpiry,
		account.PrivacyPolicyAgreed,
		account.PinHash,
		account.IsBiometricSet,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		log.Printf("Error updating account %s: %v", account.ID, err)
		return err
	}
	if commandTag.RowsAffected() == 0 {
		log.Printf("Warning: no account found with ID %s to update", account.ID)
		return ErrNotFound
	}
	return nil
}

// mapInsertError converts a pgx insert error into the repository's sentinel
// errors where applicable.
func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return ErrDuplicateICNumber
	}
	return err
}

// EnsureSchema creates the accounts table if it does not exist. Idempotent,
// called once at startup.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS accounts (
            id UUID PRIMARY KEY,
            customer_name TEXT NOT NULL,
            ic_number TEXT NOT NULL UNIQUE,
            mobile_number TEXT NOT NULL,
            email_address TEXT NOT NULL,
            is_verified BOOLEAN NOT NULL DEFAULT FALSE,
            verification_code TEXT,
            verification_code_expiry TIMESTAMPTZ,
            privacy_policy_agreed BOOLEAN NOT NULL DEFAULT FALSE,
            pin_hash TEXT,
            is_biometric_set BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ
        );
    `)
	return err
}
