package catalog

import (
	"context"
	"fmt"

	"github.com/luxspa/giftspa/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDesigns are the templates installed by SeedDefaults.
func DefaultDesigns() []models.DesignTemplate {
	return []models.DesignTemplate{
		{ID: "template1", Name: "Serene Bloom", ImageURL: "https://picsum.photos/seed/templateA/600/370", AIHint: "floral pattern", FeaturedOccasion: "Birthday", SortOrder: 1},
		{ID: "template2", Name: "Calm Waters", ImageURL: "https://picsum.photos/seed/templateB/600/370", AIHint: "water ripple", SortOrder: 2},
		{ID: "template3", Name: "Zen Stones", ImageURL: "https://picsum.photos/seed/templateC/600/370", AIHint: "stacked stones", FeaturedOccasion: "Just Because", SortOrder: 3},
		{ID: "template4", Name: "Golden Celebration", ImageURL: "https://picsum.photos/seed/templateD/600/370", AIHint: "gold abstract", FeaturedOccasion: "Anniversary", SortOrder: 4},
	}
}

// DefaultPackages are the spa packages installed by SeedDefaults.
func DefaultPackages() []models.SpaPackage {
	return []models.SpaPackage{
		{ID: "pkg_relax", Name: "Relaxation Ritual", Description: "60-minute aromatherapy massage with herbal tea service.", Price: decimal.NewFromInt(150), SortOrder: 1},
		{ID: "pkg_rejuvenate", Name: "Rejuvenation Journey", Description: "Signature facial, body scrub and steam room access.", Price: decimal.NewFromInt(250), SortOrder: 2},
		{ID: "pkg_couples", Name: "Couples Retreat", Description: "Side-by-side massages for two with a private soaking tub.", Price: decimal.NewFromInt(400), SortOrder: 3},
		{ID: "pkg_signature", Name: "Signature Day of Bliss", Description: "A full day of treatments, lunch and lounge access.", Price: decimal.NewFromInt(600), SortOrder: 4},
	}
}

// SeedDefaults inserts the default designs and packages, leaving existing rows untouched.
func SeedDefaults(ctx context.Context, db *gorm.DB) error {
	designs := DefaultDesigns()
	resDesigns := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&designs)
	if resDesigns.Error != nil {
		return fmt.Errorf("catalog: seed designs: %w", resDesigns.Error)
	}
	packages := DefaultPackages()
	resPackages := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&packages)
	if resPackages.Error != nil {
		return fmt.Errorf("catalog: seed packages: %w", resPackages.Error)
	}
	log.WithFields(log.Fields{
		"designs":  resDesigns.RowsAffected,
		"packages": resPackages.RowsAffected,
	}).Info("catalog: seeded defaults")
	return nil
}
