/**
 * @description
 * Verification-code generation and simulated dispatch. No SMS or email is
 * actually transmitted: delivery is logged, and when a broker is configured
 * an event is published so a real gateway could pick the dispatch up later.
 */
package app

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rakib33/Registration/internal/domain"
	"github.com/rakib33/Registration/pkg/rabbitmq"
)

// CodeSender produces a one-time verification code for an account and
// dispatches it to the account's contact channels. Implementations return
// the generated code so the caller can persist it alongside its expiry.
type CodeSender interface {
	Send(ctx context.Context, account *domain.Account) (string, error)
}

// SimulatedCodeSender generates a 4-digit code and simulates SMS and email
// delivery by logging. If a publisher is set, a masked dispatch event is
// also published; publish failures are logged and do not fail the send.
type SimulatedCodeSender struct {
	publisher rabbitmq.Publisher
	exchange  string
	codeTTL   time.Duration
}

// NewSimulatedCodeSender creates a SimulatedCodeSender. publisher may be nil.
func NewSimulatedCodeSender(publisher rabbitmq.Publisher, exchange string, codeTTL time.Duration) *SimulatedCodeSender {
	if exchange == "" {
		exchange = rabbitmq.OnboardingEventExchange
	}
	return &SimulatedCodeSender{publisher: publisher, exchange: exchange, codeTTL: codeTTL}
}

// Send generates a code in the 1000-9999 range and simulates delivery.
func (s *SimulatedCodeSender) Send(ctx context.Context, account *domain.Account) (string, error) {
	code := fmt.Sprintf("%d", rand.IntN(9000)+1000)

	// In a real deployment an SMS and an email would be dispatched here.
	log.Printf("Verification code %s sent to:", code)
	log.Printf("Mobile: %s", account.MobileNumber)
	log.Printf("Email: %s", account.EmailAddress)

	if s.publisher != nil {
		event := rabbitmq.VerificationCodeRequestedEvent{
			AccountID:    account.ID,
			MobileMasked: maskMobile(account.MobileNumber),
			EmailMasked:  maskEmail(account.EmailAddress),
			ExpiresAt:    time.Now().UTC().Add(s.codeTTL),
			Timestamp:    time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, s.exchange, "verification.code.requested", event); err != nil {
			log.Printf("level=warn component=code_sender msg=\"dispatch event publish failed\" account_id=%s err=%v", account.ID, err)
		}
	}

	return code, nil
}

// maskMobile keeps only the last two digits of a mobile number.
func maskMobile(mobile string) string {
	if len(mobile) <= 2 {
		return "****"
	}
	return strings.Repeat("*", len(mobile)-2) + mobile[len(mobile)-2:]
}

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "****"
	}
	return email[:1] + "****" + email[at:]
}
