package domain

import "time"

// OnboardingStage describes how far an account has progressed through the
// provisioning flow.
type OnboardingStage string

const (
	StagePendingVerification OnboardingStage = "pending_verification"
	StageVerified            OnboardingStage = "verified"
	StagePolicyAgreed        OnboardingStage = "policy_agreed"
	StagePinSet              OnboardingStage = "pin_set"
	StageCompleted           OnboardingStage = "completed"
)

// Account represents a customer account working its way through onboarding.
// The IC number is the business key and is unique across all accounts; the
// transient credential fields are pointers so that "never issued" is
// distinguishable from an empty value.
type Account struct {
	ID                     string     `json:"id"`
	CustomerName           string     `json:"customer_name"`
	ICNumber               string     `json:"ic_number"`
	MobileNumber           string     `json:"mobile_number"`
	EmailAddress           string     `json:"email_address"`
	IsVerified             bool       `json:"is_verified"`
	VerificationCode       *string    `json:"-"`
	VerificationCodeExpiry *time.Time `json:"-"`
	PrivacyPolicyAgreed    bool       `json:"privacy_policy_agreed"`
	PinHash                *string    `json:"-"`
	IsBiometricSet         bool       `json:"is_biometric_set"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              *time.Time `json:"updated_at,omitempty"`
}

// HasPin reports whether a PIN credential has been stored for the account.
func (a *Account) HasPin() bool {
	return a.PinHash != nil && *a.PinHash != ""
}

// Stage derives the account's current onboarding stage from its flags.
func (a *Account) Stage() OnboardingStage {
	switch {
	case a.IsBiometricSet:
		return StageCompleted
	case a.HasPin():
		return StagePinSet
	case a.PrivacyPolicyAgreed:
		return StagePolicyAgreed
	case a.IsVerified:
		return StageVerified
	default:
		return StagePendingVerification
	}
}
