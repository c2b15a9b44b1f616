package domain

// FailureKind is a stable, machine-readable reason attached to a failed
// service result. Human-readable messages may change; these codes do not.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureAlreadyExists   FailureKind = "already_exists"
	FailureNotFound        FailureKind = "not_found"
	FailureAlreadyVerified FailureKind = "already_verified"
	FailureInvalidCode     FailureKind = "invalid_code"
	FailureExpired         FailureKind = "expired"
	FailureNotVerified     FailureKind = "not_verified"
	FailurePolicyNotAgreed FailureKind = "policy_not_agreed"
	FailurePinMismatch     FailureKind = "pin_mismatch"
	FailurePinNotSetup     FailureKind = "pin_not_setup"
	FailureDispatch        FailureKind = "dispatch_failure"
	FailureInternal        FailureKind = "internal_error"
)

// ServiceResult is the outcome of a single onboarding operation. Business
// rule violations are reported here as failed results, never as errors; an
// error escaping the service layer means something genuinely broke.
type ServiceResult struct {
	Success bool        `json:"success"`
	Code    FailureKind `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    any         `json:"data,omitempty"`
}

// Ok builds a successful result carrying a confirmation message.
func Ok(message string) ServiceResult {
	return ServiceResult{Success: true, Message: message}
}

// OkWithData builds a successful result carrying a message and a payload.
func OkWithData(message string, data any) ServiceResult {
	return ServiceResult{Success: true, Message: message, Data: data}
}

// Fail builds a failed result with a machine-readable code and message.
func Fail(code FailureKind, message string) ServiceResult {
	return ServiceResult{Success: false, Code: code, Message: message}
}
