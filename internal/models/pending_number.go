package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PendingStatusPending   = "pending"
	PendingStatusSuccess   = "success"
	PendingStatusCancelled = "cancelled"
	PendingStatusRejected  = "rejected"
)

// PendingNumber records a secured phone number awaiting its delayed
// reward confirmation. Status follows the confirmation task's outcome.
type PendingNumber struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TelegramID int64     `gorm:"index;not null" json:"telegram_id"`
	Phone      string    `gorm:"index;not null" json:"phone"`
	Price      float64   `gorm:"not null" json:"price"`
	ClaimTime  int       `gorm:"not null" json:"claim_time"` // seconds
	Status     string    `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *PendingNumber) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
