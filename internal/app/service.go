/**
 * @description
 * This file contains the core business logic for account onboarding,
 * implemented as an `OnboardingService`. It owns the guarded state
 * progression of an account: registration, code verification, privacy
 * policy consent, PIN setup, and biometric setup, each gated strictly on
 * the preceding stage.
 *
 * @notes
 * - Business rule violations are returned as failed ServiceResults; an
 *   error return means the store or another dependency genuinely broke.
 * - The service-level existence check before insert is a fast path only.
 *   The unique constraint on the IC number is the real guard, and a late
 *   constraint violation maps to the same already-exists outcome.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rakib33/Registration/internal/domain"
	"github.com/rakib33/Registration/internal/metrics"
	"github.com/rakib33/Registration/internal/store"
	"github.com/rakib33/Registration/pkg/rabbitmq"
)

// DefaultCodeTTL is how long a verification code stays valid after dispatch.
const DefaultCodeTTL = 10 * time.Minute

// OnboardingService orchestrates the account lifecycle.
type OnboardingService struct {
	repo     store.AccountRepository
	sender   CodeSender
	producer rabbitmq.Publisher
	exchange string
	metrics  *metrics.Metrics
	codeTTL  time.Duration
}

// NewOnboardingService creates a new OnboardingService. producer and
// collected metrics may be nil; codeTTL falls back to DefaultCodeTTL when
// non-positive.
func NewOnboardingService(repo store.AccountRepository, sender CodeSender, producer rabbitmq.Publisher, exchange string, m *metrics.Metrics, codeTTL time.Duration) *OnboardingService {
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	if exchange == "" {
		exchange = rabbitmq.OnboardingEventExchange
	}
	return &OnboardingService{
		repo:     repo,
		sender:   sender,
		producer: producer,
		exchange: exchange,
		metrics:  m,
		codeTTL:  codeTTL,
	}
}

// RegisterInput defines the required input for registering an account.
type RegisterInput struct {
	CustomerName string
	ICNumber     string
	MobileNumber string
	EmailAddress string
}

// Register creates a new unverified account and dispatches its first
// verification code. Nothing is persisted if dispatch fails.
func (s *OnboardingService) Register(ctx context.Context, input RegisterInput) (domain.ServiceResult, error) {
	existing, err := s.repo.FindAccountByICNumber(ctx, input.ICNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.ServiceResult{}, err
	}
	if existing != nil {
		return s.fail("register", domain.FailureAlreadyExists, "Account already exists"), nil
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		CustomerName: input.CustomerName,
		ICNumber:     input.ICNumber,
		MobileNumber: input.MobileNumber,
		EmailAddress: input.EmailAddress,
		CreatedAt:    time.Now().UTC(),
	}

	code, err := s.sender.Send(ctx, account)
	if err != nil {
		return s.fail("register", domain.FailureDispatch, fmt.Sprintf("Failed to send verification code: %v", err)), nil
	}

	expiry := time.Now().UTC().Add(s.codeTTL)
	account.VerificationCode = &code
	account.VerificationCodeExpiry = &expiry

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateICNumber) {
			// Lost a race against a concurrent registration for the same IC
			// number; same outcome as the fast-path rejection above.
			return s.fail("register", domain.FailureAlreadyExists, "Account already exists"), nil
		}
		return domain.ServiceResult{}, err
	}

	s.metrics.RecordRegistration()
	return domain.Ok("Verification code sent to your mobile and email"), nil
}

// ResendVerification regenerates the account's verification code and
// expiry. Deliberately callable regardless of verification state.
func (s *OnboardingService) ResendVerification(ctx context.Context, icNumber string) (domain.ServiceResult, error) {
	account, err := s.repo.FindAccountByICNumber(ctx, icNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail("resend_verification", domain.FailureNotFound, "Account not found"), nil
		}
		return domain.ServiceResult{}, err
	}

	code, err := s.sender.Send(ctx, account)
	if err != nil {
		return s.fail("resend_verification", domain.FailureDispatch, fmt.Sprintf("Failed to send verification code: %v", err)), nil
	}

	now := time.Now().UTC()
	expiry := now.Add(s.codeTTL)
	account.VerificationCode = &code
	account.VerificationCodeExpiry = &expiry
	account.UpdatedAt = &now

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return domain.ServiceResult{}, err
	}
	return domain.Ok("Verification code resent successfully"), nil
}

// VerifyInput defines the required input for verifying an account.
type VerifyInput struct {
	ICNumber         string
	VerificationCode string
}

// Verify checks the submitted code against the stored one and marks the
// account verified. Verification happens at most once per account.
func (s *OnboardingService) Verify(ctx context.Context, input VerifyInput) (domain.ServiceResult, error) {
	account, err := s.repo.FindAccountByICNumber(ctx, input.ICNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail("verify", domain.FailureNotFound, "Account not found"), nil
		}
		return domain.ServiceResult{}, err
	}

	if account.IsVerified {
		return s.fail("verify", domain.FailureAlreadyVerified, "Account is already verified"), nil
	}
	if account.VerificationCode == nil || *account.VerificationCode != input.VerificationCode {
		return s.fail("verify", domain.FailureInvalidCode, "Invalid verification code"), nil
	}
	if account.VerificationCodeExpiry == nil || time.Now().UTC().After(*account.VerificationCodeExpiry) {
		return s.fail("verify", domain.FailureExpired, "Verification code has expired"), nil
	}

	now := time.Now().UTC()
	account.IsVerified = true
	account.UpdatedAt = &now

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return domain.ServiceResult{}, err
	}

	s.metrics.RecordVerification()
	return domain.Ok("Account verified successfully"), nil
}

// AgreeToPrivacyPolicy records the customer's consent decision verbatim.
// Only verified accounts may record a decision; both true and false are
// accepted.
func (s *OnboardingService) AgreeToPrivacyPolicy(ctx context.Context, icNumber string, agreed bool) (domain.ServiceResult, error) {
	account, err := s.repo.FindAccountByICNumber(ctx, icNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail("privacy_policy", domain.FailureNotFound, "Account not found"), nil
		}
		return domain.ServiceResult{}, err
	}

	if !account.IsVerified {
		return s.fail("privacy_policy", domain.FailureNotVerified, "Account is not verified"), nil
	}

	now := time.Now().UTC()
	account.PrivacyPolicyAgreed = agreed
	account.UpdatedAt = &now

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return domain.ServiceResult{}, err
	}
	return domain.Ok("Privacy policy agreement updated"), nil
}

// SetupPinInput defines the required input for setting up a PIN.
type SetupPinInput struct {
	ICNumber   string
	Pin        string
	ConfirmPin string
}

// SetupPin stores a hash of the customer's PIN once verification and policy
// consent are in place. A mismatch between PIN and confirmation leaves the
// account untouched.
func (s *OnboardingService) SetupPin(ctx context.Context, input SetupPinInput) (domain.ServiceResult, error) {
	account, err := s.repo.FindAccountByICNumber(ctx, input.ICNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail("setup_pin", domain.FailureNotFound, "Account not found"), nil
		}
		return domain.ServiceResult{}, err
	}

	if !account.IsVerified {
		return s.fail("setup_pin", domain.FailureNotVerified, "Account is not verified"), nil
	}
	if !account.PrivacyPolicyAgreed {
		return s.fail("setup_pin", domain.FailurePolicyNotAgreed, "Privacy policy not agreed"), nil
	}
	if input.Pin != input.ConfirmPin {
		return s.fail("setup_pin", domain.FailurePinMismatch, "PIN and Confirm PIN do not match"), nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Pin), bcrypt.DefaultCost)
	if err != nil {
		return domain.ServiceResult{}, err
	}

	now := time.Now().UTC()
	pinHash := string(hashed)
	account.PinHash = &pinHash
	account.UpdatedAt = &now

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return domain.ServiceResult{}, err
	}
	return domain.Ok("PIN setup successfully"), nil
}

// SetupBiometricInput defines the required input for enabling biometrics.
type SetupBiometricInput struct {
	ICNumber        string
	FingerprintData string
}

// SetupBiometric flags the account as biometric-enabled. The fingerprint
// payload is accepted and discarded; biometric credential storage is
// handled outside this service.
func (s *OnboardingService) SetupBiometric(ctx context.Context, input SetupBiometricInput) (domain.ServiceResult, error) {
	account, err := s.repo.FindAccountByICNumber(ctx, input.ICNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail("setup_biometric", domain.FailureNotFound, "Account not found"), nil
		}
		return domain.ServiceResult{}, err
	}

	if !account.IsVerified {
		return s.fail("setup_biometric", domain.FailureNotVerified, "Account is not verified"), nil
	}
	if !account.HasPin() {
		return s.fail("setup_biometric", domain.FailurePinNotSetup, "PIN not setup"), nil
	}

	now := time.Now().UTC()
	account.IsBiometricSet = true
	account.UpdatedAt = &now

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return domain.ServiceResult{}, err
	}

	s.metrics.RecordProvisioned()
	if s.producer != nil {
		event := rabbitmq.AccountProvisionedEvent{AccountID: account.ID, Timestamp: now}
		if err := s.producer.Publish(ctx, s.exchange, "account.provisioned", event); err != nil {
			log.Printf("level=warn component=onboarding_service msg=\"provisioned event publish failed\" account_id=%s err=%v", account.ID, err)
		}
	}

	return domain.Ok("Biometric setup successfully"), nil
}

// AccountStatus summarizes the onboarding progress for one account.
type AccountStatus struct {
	Stage               domain.OnboardingStage `json:"stage"`
	IsVerified          bool                   `json:"is_verified"`
	PrivacyPolicyAgreed bool                   `json:"privacy_policy_agreed"`
	PinSet              bool                   `json:"pin_set"`
	IsBiometricSet      bool                   `json:"is_biometric_set"`
}

// Status reports the account's current onboarding stage.
func (s *OnboardingService) Status(ctx context.Context, icNumber string) (domain.ServiceResult, error) {
	account, err := s.repo.FindAccountByICNumber(ctx, icNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail("status", domain.FailureNotFound, "Account not found"), nil
		}
		return domain.ServiceResult{}, err
	}

	status := AccountStatus{
		Stage:               account.Stage(),
		IsVerified:          account.IsVerified,
		PrivacyPolicyAgreed: account.PrivacyPolicyAgreed,
		PinSet:              account.HasPin(),
		IsBiometricSet:      account.IsBiometricSet,
	}
	return domain.OkWithData("Account status", status), nil
}

// fail builds a failed result and records it in the step-failure counters.
func (s *OnboardingService) fail(step string, code domain.FailureKind, message string) domain.ServiceResult {
	s.metrics.RecordFailure(step, string(code))
	return domain.Fail(code, message)
}
