package api

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Request bodies for the onboarding endpoints. Validation runs here, before
// any business logic: required-ness, maximum lengths, email shape and the
// fixed lengths of codes and PINs mirror what the mobile clients enforce.

const (
	maxCustomerNameLen = 100
	maxICNumberLen     = 20
	maxMobileNumberLen = 15
	maxEmailLen        = 100
	codeLen            = 4
	pinLen             = 6
)

type RegisterRequest struct {
	CustomerName string `json:"customer_name"`
	ICNumber     string `json:"ic_number"`
	MobileNumber string `json:"mobile_number"`
	EmailAddress string `json:"email_address"`
}

func (r *RegisterRequest) Validate() error {
	if err := requireMax("customer_name", r.CustomerName, maxCustomerNameLen); err != nil {
		return err
	}
	if err := requireMax("ic_number", r.ICNumber, maxICNumberLen); err != nil {
		return err
	}
	if err := requireMax("mobile_number", r.MobileNumber, maxMobileNumberLen); err != nil {
		return err
	}
	if err := requireMax("email_address", r.EmailAddress, maxEmailLen); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(r.EmailAddress); err != nil {
		return errors.New("email_address is not a valid email address")
	}
	return nil
}

type ResendVerificationRequest struct {
	ICNumber string `json:"ic_number"`
}

func (r *ResendVerificationRequest) Validate() error {
	return requireMax("ic_number", r.ICNumber, maxICNumberLen)
}

type VerificationRequest struct {
	ICNumber         string `json:"ic_number"`
	VerificationCode string `json:"verification_code"`
}

func (r *VerificationRequest) Validate() error {
	if err := requireMax("ic_number", r.ICNumber, maxICNumberLen); err != nil {
		return err
	}
	return requireDigits("verification_code", r.VerificationCode, codeLen)
}

type PrivacyPolicyRequest struct {
	ICNumber string `json:"ic_number"`
	Agreed   *bool  `json:"agreed"`
}

func (r *PrivacyPolicyRequest) Validate() error {
	if err := requireMax("ic_number", r.ICNumber, maxICNumberLen); err != nil {
		return err
	}
	if r.Agreed == nil {
		return errors.New("agreed is required")
	}
	return nil
}

type PinSetupRequest struct {
	ICNumber   string `json:"ic_number"`
	Pin        string `json:"pin"`
	ConfirmPin string `json:"confirm_pin"`
}

func (r *PinSetupRequest) Validate() error {
	if err := requireMax("ic_number", r.ICNumber, maxICNumberLen); err != nil {
		return err
	}
	if err := requireDigits("pin", r.Pin, pinLen); err != nil {
		return err
	}
	return requireDigits("confirm_pin", r.ConfirmPin, pinLen)
}

type BiometricRequest struct {
	ICNumber        string `json:"ic_number"`
	FingerprintData string `json:"fingerprint_data"`
}

func (r *BiometricRequest) Validate() error {
	if err := requireMax("ic_number", r.ICNumber, maxICNumberLen); err != nil {
		return err
	}
	if strings.TrimSpace(r.FingerprintData) == "" {
		return errors.New("fingerprint_data is required")
	}
	return nil
}

func requireMax(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

func requireDigits(field, value string, length int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) != length {
		return fmt.Errorf("%s must be exactly %d digits", field, length)
	}
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("%s must contain only digits", field)
		}
	}
	return nil
}
