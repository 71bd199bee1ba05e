package services

import (
	"errors"
	"fmt"

	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWithdrawalPending = errors.New("a withdrawal is already pending")
	ErrInvalidLeaderCard = errors.New("unknown leader card")
)

type WithdrawalService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewWithdrawalService(db *gorm.DB, cfg *config.Config) *WithdrawalService {
	return &WithdrawalService{db: db, cfg: cfg}
}

// CheckConditions verifies the user may open a withdrawal: enough balance
// and no other request still pending.
func (s *WithdrawalService) CheckConditions(telegramID int64, balance float64) error {
	if balance < s.cfg.MinWithdrawal {
		return fmt.Errorf("minimum withdrawal is %g$", s.cfg.MinWithdrawal)
	}
	var count int64
	if err := s.db.Model(&models.Withdrawal{}).
		Where("telegram_id = ? AND status = ?", telegramID, models.WithdrawalStatusPending).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrWithdrawalPending
	}
	return nil
}

// ValidCard reports whether a leader card with this name was issued.
func (s *WithdrawalService) ValidCard(name string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.LeaderCard{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Request opens a pending withdrawal of the user's full balance against a
// leader card.
func (s *WithdrawalService) Request(telegramID int64, card string, amount float64) (*models.Withdrawal, error) {
	valid, err := s.ValidCard(card)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalidLeaderCard
	}
	if err := s.CheckConditions(telegramID, amount); err != nil {
		return nil, err
	}

	withdrawal := &models.Withdrawal{
		TelegramID: telegramID,
		Amount:     amount,
		LeaderCard: card,
		Status:     models.WithdrawalStatusPending,
	}
	if err := s.db.Create(withdrawal).Error; err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// History lists a user's withdrawal requests, newest first.
func (s *WithdrawalService) History(telegramID int64) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	if err := s.db.Where("telegram_id = ?", telegramID).
		Order("created_at desc").Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// ApproveByCard settles every pending withdrawal on a leader card: each
// user's balance is deducted and the request marked approved, atomically per
// card. Returns the approved withdrawals so the caller can notify users.
func (s *WithdrawalService) ApproveByCard(card string) ([]models.Withdrawal, error) {
	var approved []models.Withdrawal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending []models.Withdrawal
		if err := tx.Where("leader_card = ? AND status = ?", card, models.WithdrawalStatusPending).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return gorm.ErrRecordNotFound
		}

		for _, w := range pending {
			var user models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("telegram_id = ?", w.TelegramID).First(&user).Error; err != nil {
				return err
			}
			user.Balance -= w.Amount
			if user.Balance < 0 {
				user.Balance = 0
			}
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Withdrawal{}).Where("id = ?", w.ID).
				Update("status", models.WithdrawalStatusApproved).Error; err != nil {
				return err
			}
			w.Status = models.WithdrawalStatusApproved
			approved = append(approved, w)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return approved, nil
}

// AddLeaderCard issues a new leader card name.
func (s *WithdrawalService) AddLeaderCard(name string) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LeaderCard{Name: name}).Error
}
