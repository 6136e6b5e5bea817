package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luxspa/giftspa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Refresh reloads all settings from the database into the in-memory snapshot.
//
// It must run at startup; until then every accessor returns its fallback.
func Refresh(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if row.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt
		}
	}

	Store(maxUpdatedAt, values)
	return nil
}

// Put upserts one setting and refreshes the snapshot.
func Put(ctx context.Context, db *gorm.DB, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	if !json.Valid(value) {
		return fmt.Errorf("settings: value for %s is not valid json", key)
	}
	row := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if errUpsert := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("settings: put %s: %w", key, errUpsert)
	}
	return Refresh(ctx, db)
}

// SiteName returns the configured storefront name.
func SiteName() string {
	return String(SiteNameKey, DefaultSiteName)
}

// Currency returns the configured lower-case currency code.
func Currency() string {
	return strings.ToLower(String(CurrencyKey, DefaultCurrency))
}

// DeliveryEmailRequired reports whether purchases must carry a recipient email.
func DeliveryEmailRequired() bool {
	return Bool(DeliveryEmailRequiredKey, DefaultDeliveryEmailRequired)
}

// FulfillmentRetryInterval returns the pending-step retry interval.
func FulfillmentRetryInterval() time.Duration {
	seconds := Int(FulfillmentRetryIntervalSecondsKey, DefaultFulfillmentRetryIntervalSeconds)
	if seconds <= 0 {
		seconds = DefaultFulfillmentRetryIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}
