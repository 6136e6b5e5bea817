package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gift card statuses. Only active is ever assigned by this service.
const (
	GiftCardStatusActive   = "active"
	GiftCardStatusRedeemed = "redeemed"
	GiftCardStatusExpired  = "expired"
)

// GiftCard is a purchased gift card as recorded in the ledger.
type GiftCard struct {
	ID         string `gorm:"type:varchar(64);primaryKey" json:"id"`                   // Purchase identifier.
	CardNumber string `gorm:"type:varchar(64);not null;uniqueIndex" json:"cardNumber"` // Display-facing card number.

	RecipientName string `gorm:"type:text;not null" json:"recipientName"`                      // Recipient display name.
	SenderName    string `gorm:"type:text;not null" json:"senderName"`                         // Buyer display name.
	SenderEmail   string `gorm:"type:text;not null" json:"senderEmail"`                        // Buyer email for confirmations.
	DeliveryEmail string `gorm:"type:text;not null;default:''" json:"deliveryEmail,omitempty"` // Recipient email, empty for self-download.
	Message       string `gorm:"type:text;not null;default:''" json:"message,omitempty"`       // Printed message.
	NoteToStaff   string `gorm:"type:text;not null;default:''" json:"noteToStaff,omitempty"`   // Internal note, never shown to the recipient.
	Occasion      string `gorm:"type:varchar(64);not null" json:"occasion"`                    // Occasion label.
	DesignID      string `gorm:"type:varchar(64);not null" json:"designId"`                    // Chosen design template.

	AmountType          string          `gorm:"type:varchar(16);not null" json:"amountType"`               // custom or package.
	Amount              decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`                 // Card value.
	Currency            string          `gorm:"type:varchar(8);not null" json:"currency"`                  // ISO currency, lower case.
	SelectedPackageID   *string         `gorm:"type:varchar(64);index" json:"selectedPackageId,omitempty"` // Package when AmountType is package.
	SelectedPackageName *string         `gorm:"type:text" json:"selectedPackageName,omitempty"`            // Package name snapshot.

	Status             string `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`         // active, redeemed or expired.
	PaymentMethodLast4 string `gorm:"type:varchar(4);not null" json:"paymentMethodLast4"`                     // Trailing characters of the payment token.
	PaymentIntentID    string `gorm:"type:varchar(128);not null;default:''" json:"paymentIntentId,omitempty"` // Gateway intent reference.
	LookupDigest       string `gorm:"type:varchar(64);not null;default:'';index" json:"-"`                    // Keyed hash used by retrieval.

	PurchaseDate time.Time `gorm:"not null;index" json:"purchaseDate"`       // Payment confirmation time.
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}
