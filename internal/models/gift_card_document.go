package models

import "time"

// GiftCardDocument stores the rendered printable card for one purchase.
type GiftCardDocument struct {
	GiftCardID string `gorm:"type:varchar(64);primaryKey"` // Owning gift card.

	FileName    string `gorm:"type:text;not null"`        // Suggested download name.
	ContentType string `gorm:"type:varchar(64);not null"` // MIME type.
	Data        []byte `gorm:"type:bytea;not null"`       // Document bytes.
	SizeBytes   int    `gorm:"not null;default:0"`        // Length of Data.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
