package models

import (
	"time"

	"gorm.io/datatypes"
)

// Fulfillment task statuses.
const (
	FulfillmentPending = "pending"
	FulfillmentRunning = "running"
	FulfillmentDone    = "done"
	FulfillmentFailed  = "failed"
)

// FulfillmentTask tracks one post-payment step for one gift card.
type FulfillmentTask struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GiftCardID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_fulfillment_card_step"` // Owning gift card.
	Step       string `gorm:"type:varchar(32);not null;uniqueIndex:idx_fulfillment_card_step"` // Step name.

	Status    string         `gorm:"type:varchar(16);not null;default:'pending';index"` // pending, running, done or failed.
	Attempts  int            `gorm:"not null;default:0"`                                // Executions so far.
	LastError string         `gorm:"type:text;not null;default:''"`                     // Most recent failure.
	Details   datatypes.JSON `gorm:"type:jsonb"`                                        // Step output, e.g. recipient address.

	LockedUntil *time.Time `gorm:"index"` // Lease end while running; an expired lease may be claimed again.
	CompletedAt *time.Time // Completion time, if done.
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
