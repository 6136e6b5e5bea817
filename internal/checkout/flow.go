// Package checkout runs the purchase lifecycle from a saved draft to a fulfilled gift card.
package checkout

import (
	"fmt"
)

// State is a purchase lifecycle state.
type State string

// Lifecycle states.
const (
	StateDraft            State = "draft"
	StateAwaitingPayment  State = "awaiting_payment"
	StatePaymentConfirmed State = "payment_confirmed"
	StatePaymentFailed    State = "payment_failed"
	StateFulfilled        State = "fulfilled"
)

var transitions = map[State][]State{
	StateDraft:            {StateAwaitingPayment},
	StateAwaitingPayment:  {StatePaymentConfirmed, StatePaymentFailed},
	StatePaymentFailed:    {StateAwaitingPayment},
	StatePaymentConfirmed: {StateFulfilled},
}

// Flow guards lifecycle transitions for one checkout attempt.
type Flow struct {
	state   State
	history []State
}

// NewFlow starts a flow in StateDraft.
func NewFlow() *Flow {
	return &Flow{state: StateDraft, history: []State{StateDraft}}
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// History returns every state visited, oldest first.
func (f *Flow) History() []State {
	return append([]State(nil), f.history...)
}

// CanTransition reports whether to is reachable from the current state.
func (f *Flow) CanTransition(to State) bool {
	for _, next := range transitions[f.state] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves to the next state or returns an error for an illegal move.
func (f *Flow) Transition(to State) error {
	if !f.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, f.state, to)
	}
	f.state = to
	f.history = append(f.history, to)
	return nil
}

// Terminal reports whether the flow has finished successfully.
func (f *Flow) Terminal() bool { return f.state == StateFulfilled }
