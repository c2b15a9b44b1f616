/**
 * @description
 * This file defines the HTTP handlers for the onboarding endpoints.
 * Handlers parse and validate requests, call the service, and translate
 * ServiceResults into JSON responses. Every business failure surfaces as a
 * 400 with a machine-readable code and a human-readable message.
 */
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rakib33/Registration/internal/app"
	"github.com/rakib33/Registration/internal/domain"
	"github.com/rakib33/Registration/internal/metrics"
)

// dashboardRedirect is where fully provisioned clients are sent next.
const dashboardRedirect = "/dashboard"

// ResendLimiter throttles verification-code resends per IC number. A nil
// limiter disables throttling.
type ResendLimiter interface {
	ConsumeRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// OnboardingHandler holds the dependencies for the onboarding endpoints.
type OnboardingHandler struct {
	service      *app.OnboardingService
	limiter      ResendLimiter
	resendPerMin int
	metrics      *metrics.Metrics
}

// NewOnboardingHandler creates a new OnboardingHandler. limiter and metrics
// may be nil.
func NewOnboardingHandler(service *app.OnboardingService, limiter ResendLimiter, resendPerMin int, m *metrics.Metrics) *OnboardingHandler {
	return &OnboardingHandler{service: service, limiter: limiter, resendPerMin: resendPerMin, metrics: m}
}

// Register handles POST /accounts.
func (h *OnboardingHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), app.RegisterInput{
		CustomerName: req.CustomerName,
		ICNumber:     req.ICNumber,
		MobileNumber: req.MobileNumber,
		EmailAddress: req.EmailAddress,
	})
	if err != nil {
		writeInternalError(w, "register", err)
		return
	}
	writeResult(w, result, nil)
}

// ResendVerification handles POST /accounts/verification/resend.
func (h *OnboardingHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if h.limiter != nil && h.resendPerMin > 0 {
		count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), req.ICNumber, h.resendPerMin, time.Minute)
		if err != nil {
			// Limiter trouble must not block onboarding; log and continue.
			log.Printf("level=warn component=api msg=\"resend limiter unavailable\" err=%v", err)
		} else if count > h.resendPerMin {
			h.metrics.RecordResendThrottled()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"code":    "rate_limited",
				"message": "Too many resend requests. Please try again later.",
			})
			return
		}
	}

	result, err := h.service.ResendVerification(r.Context(), req.ICNumber)
	if err != nil {
		writeInternalError(w, "resend_verification", err)
		return
	}
	writeResult(w, result, nil)
}

// Verify handles POST /accounts/verification.
func (h *OnboardingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Verify(r.Context(), app.VerifyInput{
		ICNumber:         req.ICNumber,
		VerificationCode: req.VerificationCode,
	})
	if err != nil {
		writeInternalError(w, "verify", err)
		return
	}
	writeResult(w, result, nil)
}

// PrivacyPolicy handles POST /accounts/privacy-policy.
func (h *OnboardingHandler) PrivacyPolicy(w http.ResponseWriter, r *http.Request) {
	var req PrivacyPolicyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.AgreeToPrivacyPolicy(r.Context(), req.ICNumber, *req.Agreed)
	if err != nil {
		writeInternalError(w, "privacy_policy", err)
		return
	}
	writeResult(w, result, nil)
}

// SetupPin handles POST /accounts/pin.
func (h *OnboardingHandler) SetupPin(w http.ResponseWriter, r *http.Request) {
	var req PinSetupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.SetupPin(r.Context(), app.SetupPinInput{
		ICNumber:   req.ICNumber,
		Pin:        req.Pin,
		ConfirmPin: req.ConfirmPin,
	})
	if err != nil {
		writeInternalError(w, "setup_pin", err)
		return
	}
	writeResult(w, result, nil)
}

// SetupBiometric handles POST /accounts/biometric. On success the response
// also carries the dashboard redirect target.
func (h *OnboardingHandler) SetupBiometric(w http.ResponseWriter, r *http.Request) {
	var req BiometricRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.SetupBiometric(r.Context(), app.SetupBiometricInput{
		ICNumber:        req.ICNumber,
		FingerprintData: req.FingerprintData,
	})
	if err != nil {
		writeInternalError(w, "setup_biometric", err)
		return
	}
	writeResult(w, result, map[string]string{"redirect_to": dashboardRedirect})
}

// Status handles GET /accounts/{icNumber}/status.
func (h *OnboardingHandler) Status(w http.ResponseWriter, r *http.Request) {
	icNumber := chi.URLParam(r, "icNumber")
	if icNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "validation_failed",
			"message": "ic_number is required",
		})
		return
	}

	result, err := h.service.Status(r.Context(), icNumber)
	if err != nil {
		writeInternalError(w, "status", err)
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":    result.Code,
			"message": result.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, result.Data)
}

// decodeAndValidate decodes the JSON body into req and runs its validation,
// writing the 400 response itself when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface {
	Validate() error
}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "validation_failed",
			"message": "Invalid request body",
		})
		return false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "validation_failed",
			"message": err.Error(),
		})
		return false
	}
	return true
}

// writeResult maps a ServiceResult to HTTP: failures are client errors with
// a code and message, successes are 200s with the message plus any extra
// fields.
func writeResult(w http.ResponseWriter, result domain.ServiceResult, extra map[string]string) {
	if !result.Success {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    result.Code,
			"message": result.Message,
		})
		return
	}

	body := map[string]any{"message": result.Message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeInternalError(w http.ResponseWriter, op string, err error) {
	log.Printf("Error handling %s request: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"code":    string(domain.FailureInternal),
		"message": "Something went wrong. Please try again.",
	})
}

// writeJSON is a helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
