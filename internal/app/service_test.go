package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rakib33/Registration/internal/domain"
	"github.com/rakib33/Registration/internal/store"
)

// stubCodeSender returns pre-seeded codes in order, or a fixed error.
type stubCodeSender struct {
	codes []string
	err   error
	calls int
}

func (s *stubCodeSender) Send(_ context.Context, _ *domain.Account) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	code := s.codes[0]
	if len(s.codes) > 1 {
		s.codes = s.codes[1:]
	}
	return code, nil
}

func newTestService(repo store.AccountRepository, sender CodeSender) *OnboardingService {
	return NewOnboardingService(repo, sender, nil, "", nil, 0)
}

func registerTestAccount(t *testing.T, svc *OnboardingService, icNumber string) {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		CustomerName: "Alex",
		ICNumber:     icNumber,
		MobileNumber: "0123456789",
		EmailAddress: "a@x.com",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("Register failed: %s (%s)", result.Message, result.Code)
	}
}

func TestRegister_DuplicateICNumber(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})

	registerTestAccount(t, svc, "X1")

	result, err := svc.Register(context.Background(), RegisterInput{
		CustomerName: "Alex Again",
		ICNumber:     "X1",
		MobileNumber: "0123456789",
		EmailAddress: "a@x.com",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected duplicate registration to fail")
	}
	if result.Code != domain.FailureAlreadyExists {
		t.Fatalf("expected code %q, got %q", domain.FailureAlreadyExists, result.Code)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected exactly one stored account, got %d", repo.Len())
	}
}

func TestRegister_RacingDuplicateMapsToAlreadyExists(t *testing.T) {
	// A duplicate insert that slips past the advisory pre-check must surface
	// as the same already-exists outcome.
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(&precheckBlindRepo{AccountRepository: repo}, &stubCodeSender{codes: []string{"1234"}})

	registerTestAccount(t, svc, "X1")

	result, err := svc.Register(context.Background(), RegisterInput{
		CustomerName: "Racer",
		ICNumber:     "X1",
		MobileNumber: "0123456789",
		EmailAddress: "a@x.com",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Code != domain.FailureAlreadyExists {
		t.Fatalf("expected code %q, got %q", domain.FailureAlreadyExists, result.Code)
	}
}

// precheckBlindRepo hides existing accounts from lookups during Register so
// the insert path has to handle the uniqueness violation itself.
type precheckBlindRepo struct {
	store.AccountRepository
}

func (r *precheckBlindRepo) FindAccountByICNumber(_ context.Context, _ string) (*domain.Account, error) {
	return nil, store.ErrNotFound
}

func TestRegister_DispatchFailureDoesNotPersist(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{err: errors.New("smtp unreachable")})

	result, err := svc.Register(context.Background(), RegisterInput{
		CustomerName: "Alex",
		ICNumber:     "X1",
		MobileNumber: "0123456789",
		EmailAddress: "a@x.com",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected registration to fail when dispatch fails")
	}
	if result.Code != domain.FailureDispatch {
		t.Fatalf("expected code %q, got %q", domain.FailureDispatch, result.Code)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected no stored accounts after dispatch failure, got %d", repo.Len())
	}
}

func TestVerify_WrongCodeLeavesStoredCodeUnchanged(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})
	registerTestAccount(t, svc, "X1")

	before, err := repo.FindAccountByICNumber(context.Background(), "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Verify(context.Background(), VerifyInput{ICNumber: "X1", VerificationCode: "9999"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Code != domain.FailureInvalidCode {
		t.Fatalf("expected code %q, got %q", domain.FailureInvalidCode, result.Code)
	}

	after, err := repo.FindAccountByICNumber(context.Background(), "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.IsVerified {
		t.Fatal("account must stay unverified after a wrong code")
	}
	if *after.VerificationCode != *before.VerificationCode {
		t.Fatalf("stored code changed from %q to %q", *before.VerificationCode, *after.VerificationCode)
	}
	if !after.VerificationCodeExpiry.Equal(*before.VerificationCodeExpiry) {
		t.Fatal("stored expiry changed after a wrong code")
	}
}

func TestVerify_TransitionsOnce(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})
	registerTestAccount(t, svc, "X1")

	result, err := svc.Verify(context.Background(), VerifyInput{ICNumber: "X1", VerificationCode: "1234"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected verification to succeed, got %s (%s)", result.Message, result.Code)
	}

	account, err := repo.FindAccountByICNumber(context.Background(), "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.IsVerified {
		t.Fatal("expected account to be verified")
	}
	if account.UpdatedAt == nil {
		t.Fatal("expected updated_at to be stamped")
	}

	again, err := svc.Verify(context.Background(), VerifyInput{ICNumber: "X1", VerificationCode: "1234"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if again.Code != domain.FailureAlreadyVerified {
		t.Fatalf("expected code %q, got %q", domain.FailureAlreadyVerified, again.Code)
	}
}

func TestVerify_ExpiredCodeFailsEvenIfCodeMatches(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})
	registerTestAccount(t, svc, "X1")

	account, err := repo.FindAccountByICNumber(context.Background(), "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expired := time.Now().UTC().Add(-time.Minute)
	account.VerificationCodeExpiry = &expired
	if err := repo.UpdateAccount(context.Background(), account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Verify(context.Background(), VerifyInput{ICNumber: "X1", VerificationCode: "1234"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Code != domain.FailureExpired {
		t.Fatalf("expected code %q, got %q", domain.FailureExpired, result.Code)
	}
}

func TestResendVerification_RefreshesCodeAndExpiry(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1111", "2222"}})
	registerTestAccount(t, svc, "X1")

	before := time.Now().UTC()
	result, err := svc.ResendVerification(context.Background(), "X1")
	if err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected resend to succeed, got %s (%s)", result.Message, result.Code)
	}

	account, err := repo.FindAccountByICNumber(context.Background(), "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *account.VerificationCode != "2222" {
		t.Fatalf("expected refreshed code 2222, got %q", *account.VerificationCode)
	}
	if account.VerificationCodeExpiry.Before(before.Add(9 * time.Minute)) {
		t.Fatalf("expected expiry roughly 10 minutes out, got %v", account.VerificationCodeExpiry)
	}
}

func TestResendVerification_AllowedAfterVerification(t *testing.T) {
	// There is deliberately no verified-state guard on resends.
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1111", "2222"}})
	registerTestAccount(t, svc, "X1")

	if result, _ := svc.Verify(context.Background(), VerifyInput{ICNumber: "X1", VerificationCode: "1111"}); !result.Success {
		t.Fatalf("verification should succeed, got %s", result.Code)
	}

	result, err := svc.ResendVerification(context.Background(), "X1")
	if err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected post-verification resend to succeed, got %s", result.Code)
	}
}

func TestResendVerification_NotFound(t *testing.T) {
	svc := newTestService(store.NewMemoryAccountRepository(), &stubCodeSender{codes: []string{"1234"}})

	result, err := svc.ResendVerification(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	if result.Code != domain.FailureNotFound {
		t.Fatalf("expected code %q, got %q", domain.FailureNotFound, result.Code)
	}
}

func TestOutOfOrderStepsAreRejected(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		prepare  func(t *testing.T, svc *OnboardingService)
		call     func(svc *OnboardingService) (domain.ServiceResult, error)
		wantCode domain.FailureKind
	}{
		{
			name:    "privacy policy for unknown account",
			prepare: func(t *testing.T, svc *OnboardingService) {},
			call: func(svc *OnboardingService) (domain.ServiceResult, error) {
				return svc.AgreeToPrivacyPolicy(ctx, "X1", true)
			},
			wantCode: domain.FailureNotFound,
		},
		{
			name: "privacy policy before verification",
			prepare: func(t *testing.T, svc *OnboardingService) {
				registerTestAccount(t, svc, "X1")
			},
			call: func(svc *OnboardingService) (domain.ServiceResult, error) {
				return svc.AgreeToPrivacyPolicy(ctx, "X1", true)
			},
			wantCode: domain.FailureNotVerified,
		},
		{
			name: "pin before verification",
			prepare: func(t *testing.T, svc *OnboardingService) {
				registerTestAccount(t, svc, "X1")
			},
			call: func(svc *OnboardingService) (domain.ServiceResult, error) {
				return svc.SetupPin(ctx, SetupPinInput{ICNumber: "X1", Pin: "123456", ConfirmPin: "123456"})
			},
			wantCode: domain.FailureNotVerified,
		},
		{
			name: "pin before policy agreement",
			prepare: func(t *testing.T, svc *OnboardingService) {
				registerTestAccount(t, svc, "X1")
				if result, _ := svc.Verify(ctx, VerifyInput{ICNumber: "X1", VerificationCode: "1234"}); !result.Success {
					t.Fatalf("verification should succeed, got %s", result.Code)
				}
			},
			call: func(svc *OnboardingService) (domain.ServiceResult, error) {
				return svc.SetupPin(ctx, SetupPinInput{ICNumber: "X1", Pin: "123456", ConfirmPin: "123456"})
			},
			wantCode: domain.FailurePolicyNotAgreed,
		},
		{
			name: "biometric before pin",
			prepare: func(t *testing.T, svc *OnboardingService) {
				registerTestAccount(t, svc, "X1")
				if result, _ := svc.Verify(ctx, VerifyInput{ICNumber: "X1", VerificationCode: "1234"}); !result.Success {
					t.Fatalf("verification should succeed, got %s", result.Code)
				}
				if result, _ := svc.AgreeToPrivacyPolicy(ctx, "X1", true); !result.Success {
					t.Fatalf("policy agreement should succeed, got %s", result.Code)
				}
			},
			call: func(svc *OnboardingService) (domain.ServiceResult, error) {
				return svc.SetupBiometric(ctx, SetupBiometricInput{ICNumber: "X1", FingerprintData: "payload"})
			},
			wantCode: domain.FailurePinNotSetup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(store.NewMemoryAccountRepository(), &stubCodeSender{codes: []string{"1234"}})
			tt.prepare(t, svc)

			result, err := tt.call(svc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success {
				t.Fatal("expected out-of-order step to fail")
			}
			if result.Code != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, result.Code)
			}
		})
	}
}

func TestAgreeToPrivacyPolicy_StoresDecisionVerbatim(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})
	registerTestAccount(t, svc, "X1")
	if result, _ := svc.Verify(context.Background(), VerifyInput{ICNumber: "X1", VerificationCode: "1234"}); !result.Success {
		t.Fatalf("verification should succeed, got %s", result.Code)
	}

	result, err := svc.AgreeToPrivacyPolicy(context.Background(), "X1", false)
	if err != nil {
		t.Fatalf("AgreeToPrivacyPolicy returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("declining the policy must still be recorded, got %s", result.Code)
	}

	account, err := repo.FindAccountByICNumber(context.Background(), "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.PrivacyPolicyAgreed {
		t.Fatal("expected privacy_policy_agreed to be stored as false")
	}
}

func TestSetupPin_MismatchLeavesUpdatedAtUnchanged(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})
	registerTestAccount(t, svc, "X1")
	ctx := context.Background()
	if result, _ := svc.Verify(ctx, VerifyInput{ICNumber: "X1", VerificationCode: "1234"}); !result.Success {
		t.Fatalf("verification should succeed, got %s", result.Code)
	}
	if result, _ := svc.AgreeToPrivacyPolicy(ctx, "X1", true); !result.Success {
		t.Fatalf("policy agreement should succeed, got %s", result.Code)
	}

	before, err := repo.FindAccountByICNumber(ctx, "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.SetupPin(ctx, SetupPinInput{ICNumber: "X1", Pin: "123456", ConfirmPin: "654321"})
	if err != nil {
		t.Fatalf("SetupPin returned error: %v", err)
	}
	if result.Code != domain.FailurePinMismatch {
		t.Fatalf("expected code %q, got %q", domain.FailurePinMismatch, result.Code)
	}

	after, err := repo.FindAccountByICNumber(ctx, "X1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.UpdatedAt.Equal(*before.UpdatedAt) {
		t.Fatal("updated_at must not change on a PIN mismatch")
	}
	if after.HasPin() {
		t.Fatal("no PIN credential may be stored on a mismatch")
	}
}

func TestFullOnboardingFlow(t *testing.T) {
	repo := store.NewMemoryAccountRepository()
	svc := newTestService(repo, &stubCodeSender{codes: []string{"1234"}})
	ctx := context.Background()
	const icNumber = "900101-01-1234"

	registerTestAccount(t, svc, icNumber)

	steps := []struct {
		name string
		call func() (domain.ServiceResult, error)
	}{
		{"verify", func() (domain.ServiceResult, error) {
			return svc.Verify(ctx, VerifyInput{ICNumber: icNumber, VerificationCode: "1234"})
		}},
		{"privacy policy", func() (domain.ServiceResult, error) {
			return svc.AgreeToPrivacyPolicy(ctx, icNumber, true)
		}},
		{"setup pin", func() (domain.ServiceResult, error) {
			return svc.SetupPin(ctx, SetupPinInput{ICNumber: icNumber, Pin: "123456", ConfirmPin: "123456"})
		}},
		{"setup biometric", func() (domain.ServiceResult, error) {
			return svc.SetupBiometric(ctx, SetupBiometricInput{ICNumber: icNumber, FingerprintData: "payload"})
		}},
	}

	for _, step := range steps {
		result, err := step.call()
		if err != nil {
			t.Fatalf("%s returned error: %v", step.name, err)
		}
		if !result.Success {
			t.Fatalf("%s failed: %s (%s)", step.name, result.Message, result.Code)
		}
	}

	account, err := repo.FindAccountByICNumber(ctx, icNumber)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.IsBiometricSet {
		t.Fatal("expected is_biometric_set to be true after the full flow")
	}
	if account.Stage() != domain.StageCompleted {
		t.Fatalf("expected stage %q, got %q", domain.StageCompleted, account.Stage())
	}

	status, err := svc.Status(ctx, icNumber)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	data, ok := status.Data.(AccountStatus)
	if !ok {
		t.Fatalf("unexpected status payload type %T", status.Data)
	}
	if data.Stage != domain.StageCompleted || !data.PinSet || !data.IsBiometricSet {
		t.Fatalf("unexpected status payload: %+v", data)
	}
}
