package models

import "time"

// DesignTemplate is a card artwork offered in the builder.
type DesignTemplate struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"` // Stable template identifier.

	Name             string `gorm:"type:text;not null" json:"name"`                                         // Display name.
	ImageURL         string `gorm:"type:text;not null" json:"imageUrl"`                                     // Artwork location.
	AIHint           string `gorm:"type:text;not null;default:''" json:"aiHint,omitempty"`                  // Short image search hint.
	FeaturedOccasion string `gorm:"type:varchar(64);not null;default:''" json:"featuredOccasion,omitempty"` // Occasion this design is featured for.
	SortOrder        int    `gorm:"not null;default:0;index" json:"sortOrder"`                              // Display order in the builder.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}
