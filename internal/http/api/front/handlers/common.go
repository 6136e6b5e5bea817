package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luxspa/giftspa/internal/models"
	"github.com/shopspring/decimal"
)

// sessionKeyParam reads the builder session key from the route.
func sessionKeyParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("key"))
}

// giftCardDTO is the customer-facing view of a purchased card. It never carries the staff note.
type giftCardDTO struct {
	ID                  string          `json:"id"`
	CardNumber          string          `json:"cardNumber"`
	RecipientName       string          `json:"recipientName"`
	SenderName          string          `json:"senderName"`
	DeliveryEmail       string          `json:"deliveryEmail,omitempty"`
	Message             string          `json:"message,omitempty"`
	Occasion            string          `json:"occasion"`
	DesignID            string          `json:"designId"`
	AmountType          string          `json:"amountType"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	SelectedPackageID   string          `json:"selectedPackageId,omitempty"`
	SelectedPackageName string          `json:"selectedPackageName,omitempty"`
	Status              string          `json:"status"`
	PaymentMethodLast4  string          `json:"paymentMethodLast4"`
	PurchaseDate        time.Time       `json:"purchaseDate"`
}

func toGiftCardDTO(card *models.GiftCard) giftCardDTO {
	dto := giftCardDTO{
		ID:                 card.ID,
		CardNumber:         card.CardNumber,
		RecipientName:      card.RecipientName,
		SenderName:         card.SenderName,
		DeliveryEmail:      card.DeliveryEmail,
		Message:            card.Message,
		Occasion:           card.Occasion,
		DesignID:           card.DesignID,
		AmountType:         card.AmountType,
		Amount:             card.Amount,
		Currency:           card.Currency,
		Status:             card.Status,
		PaymentMethodLast4: card.PaymentMethodLast4,
		PurchaseDate:       card.PurchaseDate,
	}
	if card.SelectedPackageID != nil {
		dto.SelectedPackageID = *card.SelectedPackageID
	}
	if card.SelectedPackageName != nil {
		dto.SelectedPackageName = *card.SelectedPackageName
	}
	return dto
}
