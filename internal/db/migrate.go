package db

import (
	"fmt"

	"github.com/luxspa/giftspa/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.DesignTemplate{},
		&models.SpaPackage{},
		&models.GiftCard{},
		&models.GiftCardDocument{},
		&models.FulfillmentTask{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
