// Package payment defines the payment gateway port and a mock adapter.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Intent statuses reported by a gateway.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusSucceeded             = "succeeded"
	StatusFailed                = "failed"
)

// ErrIntentNotFound is returned when confirming an unknown intent.
var ErrIntentNotFound = errors.New("payment: intent not found")

// Intent is a gateway payment intent.
type Intent struct {
	ID          string
	AmountMinor int64
	Currency    string
	Status      string
}

// Gateway creates and confirms payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (Intent, error)
}

// MockGateway succeeds for every payment method except the configured decline tokens.
type MockGateway struct {
	mu      sync.Mutex
	decline map[string]struct{}
	intents map[string]Intent
}

// NewMockGateway returns a MockGateway that fails confirmation for declineTokens.
func NewMockGateway(declineTokens []string) *MockGateway {
	decline := make(map[string]struct{}, len(declineTokens))
	for _, token := range declineTokens {
		if token = strings.TrimSpace(token); token != "" {
			decline[token] = struct{}{}
		}
	}
	return &MockGateway{decline: decline, intents: make(map[string]Intent)}
}

// CreateIntent registers a new intent awaiting a payment method.
func (g *MockGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string) (Intent, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return Intent{}, errCtx
	}
	if amountMinor <= 0 {
		return Intent{}, fmt.Errorf("payment: amount must be positive, got %d", amountMinor)
	}
	intent := Intent{
		ID:          "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountMinor: amountMinor,
		Currency:    strings.ToLower(strings.TrimSpace(currency)),
		Status:      StatusRequiresPaymentMethod,
	}
	g.mu.Lock()
	g.intents[intent.ID] = intent
	g.mu.Unlock()
	return intent, nil
}

// ConfirmIntent attaches paymentMethodID and settles the intent.
func (g *MockGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (Intent, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return Intent{}, errCtx
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return Intent{}, ErrIntentNotFound
	}
	if intent.Status == StatusSucceeded {
		return intent, nil
	}
	_, declined := g.decline[strings.TrimSpace(paymentMethodID)]
	switch {
	case strings.TrimSpace(paymentMethodID) == "":
		intent.Status = StatusRequiresPaymentMethod
	case declined:
		intent.Status = StatusFailed
	default:
		intent.Status = StatusSucceeded
	}
	g.intents[intentID] = intent
	return intent, nil
}
