package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TelegramID   int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Language     string    `gorm:"default:'English'" json:"language"`
	Balance      float64   `gorm:"not null;default:0" json:"balance"`
	SentAccounts int       `gorm:"not null;default:0" json:"sent_accounts"`

	// Transient verification markers, cleared when the pending number settles
	PendingPhone string `json:"pending_phone,omitempty"`
	OTPMessageID int    `json:"-"`

	RegisteredAt time.Time `json:"registered_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}
	return nil
}
