package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpaPackage is a fixed-price treatment bundle a gift card can be bought for.
type SpaPackage struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"` // Stable package identifier.

	Name        string          `gorm:"type:text;not null" json:"name"`                   // Display name.
	Description string          `gorm:"type:text;not null;default:''" json:"description"` // Customer-facing description.
	Price       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`         // Card value when this package is chosen.
	SortOrder   int             `gorm:"not null;default:0;index" json:"sortOrder"`        // Display order in the builder.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}
