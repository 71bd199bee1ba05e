package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsumedNumber marks a phone number as reward-paid and permanently
// ineligible for resubmission. The unique index on Phone is the
// exactly-once gate for reward settlement.
type ConsumedNumber struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Phone      string    `gorm:"uniqueIndex;not null" json:"phone"`
	TelegramID int64     `gorm:"index;not null" json:"telegram_id"`
	ConsumedAt time.Time `gorm:"not null" json:"consumed_at"`
}

func (c *ConsumedNumber) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ConsumedAt.IsZero() {
		c.ConsumedAt = time.Now().UTC()
	}
	return nil
}
