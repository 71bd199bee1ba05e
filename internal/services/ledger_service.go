package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vipreceiver/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNumberConsumed is returned when a phone number already carries a
// consumption record.
var ErrNumberConsumed = errors.New("phone number already consumed")

// LedgerService owns the durable side of the marketplace: user accounts,
// balances, pending numbers and consumption records.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// EnsureUser loads the user for a Telegram id, registering them on first
// contact.
func (s *LedgerService) EnsureUser(telegramID int64, name, username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		TelegramID:   telegramID,
		Name:         name,
		Username:     username,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser loads a user by Telegram id. Returns (nil, nil) when unknown.
func (s *LedgerService) GetUser(telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// IsConsumed reports whether a phone number already has a consumption record.
func (s *LedgerService) IsConsumed(phone string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.ConsumedNumber{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetPendingMarkers records the in-flight phone and prompt message on the
// user row so an interrupted flow can be resumed or cleaned up.
func (s *LedgerService) SetPendingMarkers(telegramID int64, phone string, otpMessageID int) error {
	return s.db.Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"pending_phone":  phone,
			"otp_message_id": otpMessageID,
		}).Error
}

// CreatePending opens a pending-number record for a secured phone awaiting
// its delayed confirmation.
func (s *LedgerService) CreatePending(telegramID int64, phone string, price float64, claimTime int) (*models.PendingNumber, error) {
	pending := &models.PendingNumber{
		TelegramID: telegramID,
		Phone:      phone,
		Price:      price,
		ClaimTime:  claimTime,
		Status:     models.PendingStatusPending,
	}
	if err := s.db.Create(pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

// SetPendingStatus updates the outcome of a pending-number record.
func (s *LedgerService) SetPendingStatus(id uuid.UUID, status string) error {
	return s.db.Model(&models.PendingNumber{}).Where("id = ?", id).Update("status", status).Error
}

// Settle commits a confirmed reward: the consumption record, the pending
// status, the balance credit, the sent-accounts counter, the region capacity
// decrement and the cleared pending markers form one transaction. The unique
// index on consumed_numbers.phone makes the whole settlement exactly-once;
// any failure rolls everything back and leaves the number claimable.
func (s *LedgerService) Settle(telegramID int64, phone string, pendingID uuid.UUID, price float64, regionCode string) (float64, error) {
	var newBalance float64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		consumed := &models.ConsumedNumber{
			Phone:      phone,
			TelegramID: telegramID,
			ConsumedAt: time.Now().UTC(),
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			DoNothing: true,
		}).Create(consumed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNumberConsumed
		}

		if err := tx.Model(&models.PendingNumber{}).
			Where("id = ?", pendingID).
			Update("status", models.PendingStatusSuccess).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return err
		}
		user.Balance += price
		user.SentAccounts++
		user.PendingPhone = ""
		user.OTPMessageID = 0
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		newBalance = user.Balance

		if err := tx.Model(&models.Region{}).
			Where("code = ? AND capacity > 0", regionCode).
			UpdateColumn("capacity", gorm.Expr("capacity - 1")).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNumberConsumed) {
			return 0, err
		}
		return 0, fmt.Errorf("settle %s: %w", phone, err)
	}
	return newBalance, nil
}

// Stats summarizes ledger activity for the admin API.
type Stats struct {
	Users              int64 `json:"users"`
	ConsumedNumbers    int64 `json:"consumed_numbers"`
	PendingNumbers     int64 `json:"pending_numbers"`
	PendingWithdrawals int64 `json:"pending_withdrawals"`
}

func (s *LedgerService) Stats() (*Stats, error) {
	var stats Stats
	if err := s.db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.ConsumedNumber{}).Count(&stats.ConsumedNumbers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.PendingNumber{}).
		Where("status = ?", models.PendingStatusPending).
		Count(&stats.PendingNumbers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalStatusPending).
		Count(&stats.PendingWithdrawals).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
