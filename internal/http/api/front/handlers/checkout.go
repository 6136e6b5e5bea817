package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/checkout"
	"github.com/luxspa/giftspa/internal/giftcard"
	internalsettings "github.com/luxspa/giftspa/internal/settings"
	log "github.com/sirupsen/logrus"
)

// CheckoutHandler runs the purchase flow for a builder session.
type CheckoutHandler struct {
	service *checkout.Service
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(service *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// checkoutRequest is the payment form submission.
type checkoutRequest struct {
	TermsAccepted   bool   `json:"terms_accepted"`
	PaymentMethodID string `json:"payment_method_id"`
}

// confirmationResponse is returned after a successful purchase.
type confirmationResponse struct {
	GiftCard          giftCardDTO      `json:"gift_card"`
	DocumentURL       string           `json:"document_url"`
	DeliveryEmailSent bool             `json:"delivery_email_sent"`
	PendingSteps      []string         `json:"pending_steps"`
	States            []checkout.State `json:"states"`
}

// Summary returns the order summary shown on the checkout page.
func (h *CheckoutHandler) Summary(c *gin.Context) {
	draft, cats, errLoad := h.service.LoadDraft(c.Request.Context(), sessionKeyParam(c))
	if errLoad != nil {
		writeCheckoutError(c, errLoad)
		return
	}
	design, _ := cats.ResolveDesign(draft.DesignID)
	c.JSON(http.StatusOK, gin.H{
		"draft":    draft,
		"design":   design,
		"amount":   draft.Amount,
		"currency": internalsettings.Currency(),
	})
}

// Submit confirms payment and fulfills the gift card.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var body checkoutRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	confirmation, errCheckout := h.service.Checkout(c.Request.Context(), checkout.Request{
		SessionKey:      sessionKeyParam(c),
		TermsAccepted:   body.TermsAccepted,
		PaymentMethodID: body.PaymentMethodID,
	})
	if errCheckout != nil {
		writeCheckoutError(c, errCheckout)
		return
	}
	pending := confirmation.PendingSteps
	if pending == nil {
		pending = []string{}
	}
	c.JSON(http.StatusCreated, confirmationResponse{
		GiftCard:          toGiftCardDTO(confirmation.GiftCard),
		DocumentURL:       confirmation.DocumentURL,
		DeliveryEmailSent: confirmation.DeliveryEmailSent,
		PendingSteps:      pending,
		States:            confirmation.States,
	})
}

// writeCheckoutError maps checkout failures onto HTTP responses.
func writeCheckoutError(c *gin.Context, err error) {
	var (
		validationErr  *checkout.ValidationError
		paymentErr     *checkout.PaymentError
		fulfillmentErr *checkout.FulfillmentError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "gift card details are incomplete",
			"errors":   giftcard.FieldErrors(validationErr.Errors),
			"redirect": "/",
		})
	case errors.Is(err, checkout.ErrDraftUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "no gift card to check out", "redirect": "/"})
	case errors.Is(err, checkout.ErrTermsNotAccepted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "you must accept the terms and conditions"})
	case errors.As(err, &paymentErr):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":          "payment was not completed, please check your details and try again",
			"payment_status": paymentErr.Status,
			"retry":          true,
		})
	case errors.As(err, &fulfillmentErr):
		log.WithError(err).WithField("step", fulfillmentErr.Step).Error("checkout fulfillment failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "your payment was received but the purchase could not be completed, please contact the spa"})
	default:
		log.WithError(err).Error("checkout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
	}
}
