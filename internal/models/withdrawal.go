package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
)

type Withdrawal struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TelegramID int64     `gorm:"index;not null" json:"telegram_id"`
	Amount     float64   `gorm:"not null" json:"amount"`
	LeaderCard string    `gorm:"index;not null" json:"leader_card"`
	Status     string    `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (w *Withdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// LeaderCard is an admin-issued payout card name a user must present
// when requesting a withdrawal.
type LeaderCard struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
