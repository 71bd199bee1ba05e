package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/models"
)

// Task states, for logging and the pending-number record.
const (
	taskWaiting          = "waiting"
	taskValidating       = "validating"
	taskLoggingOutOthers = "logging_out_others"
	taskCommitting       = "committing"
)

// RewardLedger is the slice of the ledger the scheduler settles against.
type RewardLedger interface {
	IsConsumed(phone string) (bool, error)
	Settle(telegramID int64, phone string, pendingID uuid.UUID, price float64, regionCode string) (float64, error)
	SetPendingStatus(id uuid.UUID, status string) error
}

// Notifier delivers task outcomes to the user. Implemented by the bot.
type Notifier interface {
	SendMessage(chatID int64, text string) (int, error)
	EditMessage(chatID int64, messageID int, text string) error
}

// DeviceCounter revokes and counts device authorizations on a credential.
// Implemented by ExclusivityService.
type DeviceCounter interface {
	RevokeAll(ctx context.Context, artifactPath string) error
	DeviceCount(ctx context.Context, artifactPath string) (int, error)
}

// Validator re-checks a credential before settlement.
type Validator interface {
	Validate(ctx context.Context, path string) (bool, string)
}

// RewardTask describes one secured phone number awaiting confirmation.
type RewardTask struct {
	UserID       int64
	Phone        string
	RegionCode   string
	ArtifactPath string
	Price        float64
	ClaimTime    time.Duration
	MessageID    int
	PendingID    uuid.UUID
}

// RewardService runs the delayed, cancellable confirmation for every secured
// phone number: wait out the claim window polling for cancellation, then
// re-validate the credential, force out other devices, and settle the reward
// in a single ledger transaction. Every exit path cleans up its registry
// entry; only a committed settlement consumes the number.
type RewardService struct {
	cfg       *config.Config
	registry  *CancelRegistry
	validator Validator
	devices   DeviceCounter
	ledger    RewardLedger
	notifier  Notifier

	wg sync.WaitGroup
}

func NewRewardService(cfg *config.Config, registry *CancelRegistry, validator Validator, devices DeviceCounter, ledger RewardLedger, notifier Notifier) *RewardService {
	return &RewardService{
		cfg:       cfg,
		registry:  registry,
		validator: validator,
		devices:   devices,
		ledger:    ledger,
		notifier:  notifier,
	}
}

// Schedule registers the task and starts its confirmation in the background.
func (s *RewardService) Schedule(task RewardTask) {
	cancel := s.registry.Register(task.UserID, task.Phone)

	log.Printf("Reward: scheduled confirmation for %s in %s", task.Phone, s.waitFor(task.ClaimTime))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.registry.Cleanup(task.UserID, cancel)
		s.run(context.Background(), task, cancel)
	}()
}

// Wait blocks until every in-flight confirmation task has exited. Used on
// shutdown.
func (s *RewardService) Wait() {
	s.wg.Wait()
}

// waitFor computes the validation delay: the claim window minus a margin,
// floored so even tiny windows get a real wait.
func (s *RewardService) waitFor(claimTime time.Duration) time.Duration {
	wait := claimTime - s.cfg.ClaimMargin
	if wait < s.cfg.MinClaimWait {
		wait = s.cfg.MinClaimWait
	}
	return wait
}

func (s *RewardService) run(ctx context.Context, task RewardTask, cancel <-chan struct{}) {
	state := taskWaiting

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Reward: task for %s panicked in %s: %v", task.Phone, state, r)
			s.send(task.UserID, fmt.Sprintf("❌ System error during verification of %s. Please contact support.", task.Phone))
		}
	}()

	// Waiting: sleep in bounded increments, observing the cancel signal at
	// every step.
	wait := s.waitFor(task.ClaimTime)
	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		step := s.cfg.CancelPollInterval
		if remaining < step {
			step = remaining
		}
		select {
		case <-cancel:
			s.cancelled(task)
			return
		case <-time.After(step):
		}
	}

	// Race window: a cancel may have landed while the last step elapsed.
	select {
	case <-cancel:
		s.cancelled(task)
		return
	default:
	}

	state = taskValidating
	log.Printf("Reward: validating session for %s", task.Phone)
	ok, reason := s.validator.Validate(ctx, task.ArtifactPath)
	if !ok {
		log.Printf("Reward: validation failed for %s: %s", task.Phone, reason)
		s.reject(task, fmt.Sprintf(
			"❌ Verification Failed\n\n📞 Number: %s\n❌ Reason: %s\n🔄 You can try this number again",
			task.Phone, reason))
		return
	}

	// A second device may have logged in during the cooldown; force
	// everything out and count what comes back.
	state = taskLoggingOutOthers
	if err := s.devices.RevokeAll(ctx, task.ArtifactPath); err != nil {
		log.Printf("Reward: logout sweep for %s: %v", task.Phone, err)
	}
	time.Sleep(s.cfg.LogoutSettle)
	count, err := s.devices.DeviceCount(ctx, task.ArtifactPath)
	if err != nil || count != 1 {
		log.Printf("Reward: device count for %s is %d (err=%v), withholding reward", task.Phone, count, err)
		s.reject(task, "❌ Multiple device login detected. The reward was withheld; you can try this number again.")
		return
	}

	// Point of no return: once committing starts, cancellation is ignored.
	select {
	case <-cancel:
		s.cancelled(task)
		return
	default:
	}

	state = taskCommitting
	newBalance, err := s.ledger.Settle(task.UserID, task.Phone, task.PendingID, task.Price, task.RegionCode)
	if errors.Is(err, ErrNumberConsumed) {
		log.Printf("Reward: %s was consumed concurrently", task.Phone)
		s.reject(task, "❌ This number has already been claimed.")
		return
	}
	if err != nil {
		// Validated but not credited: the transaction rolled back whole, so
		// the number stays claimable. Reported distinctly from validation
		// failures.
		log.Printf("Reward: ledger commit failed for %s: %v", task.Phone, err)
		s.reject(task, fmt.Sprintf("❌ Error processing reward for %s. Please contact support.", task.Phone))
		return
	}

	log.Printf("Reward: settled %s for user %d (+%g)", task.Phone, task.UserID, task.Price)
	s.edit(task.UserID, task.MessageID, fmt.Sprintf(
		"🎉 Successfully Verified!\n\n📞 Number: %s\n💰 Earned: %g USDT\n💳 New Balance: %g USDT",
		task.Phone, task.Price, newBalance))
}

func (s *RewardService) cancelled(task RewardTask) {
	log.Printf("Reward: confirmation cancelled for %s (user %d)", task.Phone, task.UserID)
	if err := s.ledger.SetPendingStatus(task.PendingID, models.PendingStatusCancelled); err != nil {
		log.Printf("Reward: updating pending status for %s: %v", task.Phone, err)
	}
	s.edit(task.UserID, task.MessageID, fmt.Sprintf(
		"🛑 Verification cancelled for %s. The number stays available for resubmission.", task.Phone))
}

func (s *RewardService) reject(task RewardTask, text string) {
	if err := s.ledger.SetPendingStatus(task.PendingID, models.PendingStatusRejected); err != nil {
		log.Printf("Reward: updating pending status for %s: %v", task.Phone, err)
	}
	s.edit(task.UserID, task.MessageID, text)
}

// edit updates the original status message, falling back to a fresh message
// when editing fails (the user may have deleted it).
func (s *RewardService) edit(userID int64, messageID int, text string) {
	if messageID != 0 {
		if err := s.notifier.EditMessage(userID, messageID, text); err == nil {
			return
		}
	}
	s.send(userID, text)
}

func (s *RewardService) send(userID int64, text string) {
	if _, err := s.notifier.SendMessage(userID, text); err != nil {
		log.Printf("Reward: notifying user %d failed: %v", userID, err)
	}
}
