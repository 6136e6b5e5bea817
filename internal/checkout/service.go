package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/luxspa/giftspa/internal/catalog"
	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/metrics"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/luxspa/giftspa/internal/payment"
	"github.com/luxspa/giftspa/internal/session"
	"github.com/luxspa/giftspa/internal/settings"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var minorUnits = decimal.NewFromInt(100)

// Deps wires a Service. Policy and Currency default to the DB-backed settings.
type Deps struct {
	Sessions  session.Store
	Catalog   catalog.Catalog
	Gateway   payment.Gateway
	Fulfiller *Fulfiller
	Metrics   *metrics.Metrics
	Policy    func() giftcard.Policy
	Currency  func() string
}

// Service runs checkouts.
type Service struct {
	sessions  session.Store
	catalog   catalog.Catalog
	gateway   payment.Gateway
	fulfiller *Fulfiller
	metrics   *metrics.Metrics
	policy    func() giftcard.Policy
	currency  func() string
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(d Deps) *Service {
	s := &Service{
		sessions:  d.Sessions,
		catalog:   d.Catalog,
		gateway:   d.Gateway,
		fulfiller: d.Fulfiller,
		metrics:   d.Metrics,
		policy:    d.Policy,
		currency:  d.Currency,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.policy == nil {
		s.policy = func() giftcard.Policy {
			return giftcard.Policy{RequireDeliveryEmail: settings.DeliveryEmailRequired()}
		}
	}
	if s.currency == nil {
		s.currency = settings.Currency
	}
	return s
}

// Request is one checkout submission.
type Request struct {
	SessionKey      string
	TermsAccepted   bool
	PaymentMethodID string
}

// Confirmation is returned after a successful purchase.
type Confirmation struct {
	GiftCard          *models.GiftCard
	DocumentURL       string
	DeliveryEmailSent bool
	PendingSteps      []string
	States            []State
}

// LoadDraft returns the saved, normalized draft of a session and its catalogs.
// A missing draft yields ErrDraftUnavailable; an invalid one a *ValidationError.
// Session store failures are returned wrapped.
func (s *Service) LoadDraft(ctx context.Context, sessionKey string) (giftcard.Draft, giftcard.Catalogs, error) {
	if strings.TrimSpace(sessionKey) == "" {
		return giftcard.Draft{}, giftcard.Catalogs{}, ErrDraftUnavailable
	}
	var draft giftcard.Draft
	found, errLoad := session.Load(ctx, s.sessions, session.DraftKey(sessionKey), &draft)
	if errLoad != nil {
		return giftcard.Draft{}, giftcard.Catalogs{}, fmt.Errorf("checkout: load draft: %w", errLoad)
	}
	if !found {
		return giftcard.Draft{}, giftcard.Catalogs{}, ErrDraftUnavailable
	}
	cats, errCatalog := catalog.Load(ctx, s.catalog)
	if errCatalog != nil {
		return giftcard.Draft{}, giftcard.Catalogs{}, fmt.Errorf("checkout: load catalog: %w", errCatalog)
	}
	draft = giftcard.Normalize(draft, cats)
	if errs := giftcard.Validate(draft, cats, s.policy()); !errs.Valid() {
		return draft, cats, &ValidationError{Errors: errs}
	}
	return draft, cats, nil
}

// Checkout pays for the session draft and fulfills the resulting gift card.
//
// Payment failures return *PaymentError and leave no record behind. A ledger failure returns
// *FulfillmentError; later fulfillment steps never fail the checkout.
func (s *Service) Checkout(ctx context.Context, req Request) (*Confirmation, error) {
	flow := NewFlow()
	entry := log.WithField("session", shortKey(req.SessionKey))

	draft, _, errDraft := s.LoadDraft(ctx, req.SessionKey)
	if errDraft != nil {
		if errors.Is(errDraft, ErrDraftUnavailable) {
			s.metrics.CheckoutOutcome(metrics.OutcomeDraftRejected)
		}
		return nil, errDraft
	}
	if errMove := flow.Transition(StateAwaitingPayment); errMove != nil {
		return nil, errMove
	}

	if !req.TermsAccepted {
		return nil, ErrTermsNotAccepted
	}

	intent, errPay := s.pay(ctx, draft, req.PaymentMethodID)
	if errPay != nil {
		_ = flow.Transition(StatePaymentFailed)
		s.metrics.CheckoutOutcome(metrics.OutcomePaymentFailed)
		entry.WithError(errPay).Warn("checkout: payment failed")
		return nil, errPay
	}
	if errMove := flow.Transition(StatePaymentConfirmed); errMove != nil {
		return nil, errMove
	}

	card, errFinalize := s.finalize(draft, intent, req.PaymentMethodID)
	if errFinalize != nil {
		s.metrics.CheckoutOutcome(metrics.OutcomeFulfillmentFail)
		return nil, &FulfillmentError{Step: StepLedger, Err: errFinalize}
	}

	result, errFulfill := s.fulfiller.Fulfill(ctx, card)
	if errFulfill != nil {
		s.metrics.CheckoutOutcome(metrics.OutcomeFulfillmentFail)
		entry.WithError(errFulfill).WithField("intent", intent.ID).Error("checkout: fulfillment failed after payment")
		return nil, errFulfill
	}

	if errRemove := s.sessions.Remove(ctx, session.DraftKey(req.SessionKey)); errRemove != nil {
		entry.WithError(errRemove).Warn("checkout: clear draft failed")
	}
	if errMove := flow.Transition(StateFulfilled); errMove != nil {
		return nil, errMove
	}
	s.metrics.CheckoutOutcome(metrics.OutcomeSucceeded)
	entry.WithFields(log.Fields{
		"gift_card_id": card.ID,
		"card_number":  card.CardNumber,
		"pending":      strings.Join(result.Pending, ","),
	}).Info("checkout: gift card purchased")

	return &Confirmation{
		GiftCard:          card,
		DocumentURL:       result.DocumentURL,
		DeliveryEmailSent: result.DeliveryEmailSent,
		PendingSteps:      result.Pending,
		States:            flow.History(),
	}, nil
}

// pay creates and confirms an intent. Any error or non-succeeded status becomes a *PaymentError.
func (s *Service) pay(ctx context.Context, draft giftcard.Draft, paymentMethodID string) (payment.Intent, error) {
	amountMinor := draft.Amount.Mul(minorUnits).Round(0).IntPart()
	intent, errCreate := s.gateway.CreateIntent(ctx, amountMinor, s.currency())
	if errCreate != nil {
		return payment.Intent{}, &PaymentError{Err: errCreate}
	}
	confirmed, errConfirm := s.gateway.ConfirmIntent(ctx, intent.ID, paymentMethodID)
	if errConfirm != nil {
		return payment.Intent{}, &PaymentError{IntentID: intent.ID, Status: intent.Status, Err: errConfirm}
	}
	if confirmed.Status != payment.StatusSucceeded {
		return payment.Intent{}, &PaymentError{IntentID: confirmed.ID, Status: confirmed.Status}
	}
	return confirmed, nil
}

// finalize builds the ledger record. It runs only after payment succeeded.
func (s *Service) finalize(draft giftcard.Draft, intent payment.Intent, paymentMethodID string) (*models.GiftCard, error) {
	id, errID := uuid.NewV7()
	if errID != nil {
		return nil, fmt.Errorf("checkout: card id: %w", errID)
	}
	number, errNumber := giftcard.NewCardNumber(draft)
	if errNumber != nil {
		return nil, fmt.Errorf("checkout: card number: %w", errNumber)
	}
	card := &models.GiftCard{
		ID:                 id.String(),
		CardNumber:         number,
		RecipientName:      strings.TrimSpace(draft.RecipientName),
		SenderName:         strings.TrimSpace(draft.SenderName),
		SenderEmail:        strings.TrimSpace(draft.SenderEmail),
		DeliveryEmail:      strings.TrimSpace(draft.DeliveryEmail),
		Message:            draft.Message,
		NoteToStaff:        draft.NoteToStaff,
		Occasion:           draft.Occasion,
		DesignID:           draft.DesignID,
		AmountType:         string(draft.AmountType),
		Amount:             draft.Amount,
		Currency:           intent.Currency,
		Status:             models.GiftCardStatusActive,
		PaymentMethodLast4: giftcard.PaymentMethodLast4(paymentMethodID),
		PaymentIntentID:    intent.ID,
		PurchaseDate:       s.now(),
	}
	if card.Currency == "" {
		card.Currency = s.currency()
	}
	if draft.AmountType == giftcard.AmountPackage {
		pkgID, pkgName := draft.SelectedPackageID, draft.SelectedPackageName
		card.SelectedPackageID = &pkgID
		card.SelectedPackageName = &pkgName
	}
	return card, nil
}

func shortKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8]
}
