package models

import (
	"time"
)

// Region is a phone-number-prefix configuration entry. Code carries the
// leading "+" and one to four digits, e.g. "+1", "+44", "+998".
type Region struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	Name      string    `json:"name"`
	Capacity  int       `gorm:"not null;default:0" json:"capacity"`
	Price     float64   `gorm:"not null;default:0" json:"price"`
	ClaimTime int       `gorm:"not null;default:600" json:"claim_time"` // seconds
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
