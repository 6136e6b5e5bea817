package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxspa/giftspa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps one rendered document per gift card.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Put saves or replaces the document for giftCardID.
func (s *Store) Put(ctx context.Context, giftCardID, fileName string, data []byte) error {
	row := models.GiftCardDocument{
		GiftCardID:  giftCardID,
		FileName:    fileName,
		ContentType: ContentType,
		Data:        data,
		SizeBytes:   len(data),
		CreatedAt:   time.Now().UTC(),
	}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gift_card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_name", "content_type", "data", "size_bytes", "created_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("document: store: %w", errUpsert)
	}
	return nil
}

// Get loads the document for giftCardID; nil, nil when none was stored.
func (s *Store) Get(ctx context.Context, giftCardID string) (*models.GiftCardDocument, error) {
	var row models.GiftCardDocument
	if errFind := s.db.WithContext(ctx).Where("gift_card_id = ?", giftCardID).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("document: load: %w", errFind)
	}
	return &row, nil
}
