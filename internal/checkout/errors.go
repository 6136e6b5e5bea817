package checkout

import (
	"errors"
	"fmt"

	"github.com/luxspa/giftspa/internal/giftcard"
)

// Checkout errors.
var (
	// ErrDraftUnavailable means no usable draft was saved for the session.
	ErrDraftUnavailable = errors.New("checkout: no gift card draft to check out")
	// ErrTermsNotAccepted means the buyer did not accept the terms and conditions.
	ErrTermsNotAccepted = errors.New("checkout: terms and conditions not accepted")
	// ErrIllegalTransition is returned by Flow for moves outside the lifecycle graph.
	ErrIllegalTransition = errors.New("checkout: illegal state transition")
)

// ValidationError reports a saved draft that no longer validates.
type ValidationError struct {
	Errors giftcard.FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: draft invalid: %v", e.Errors.Fields())
}

// Unwrap lets errors.Is match ErrDraftUnavailable.
func (e *ValidationError) Unwrap() error { return ErrDraftUnavailable }

// PaymentError reports a failed payment. Nothing was recorded and the draft is kept for a retry.
type PaymentError struct {
	IntentID string
	Status   string
	Err      error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout: payment failed: %v", e.Err)
	}
	return fmt.Sprintf("checkout: payment not completed (status %s)", e.Status)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// FulfillmentError reports a post-payment step that could not complete.
type FulfillmentError struct {
	Step string
	Err  error
}

func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("checkout: fulfillment step %s failed: %v", e.Step, e.Err)
}

func (e *FulfillmentError) Unwrap() error { return e.Err }
