package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vipreceiver/backend/internal/services"
)

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.send(msg.Chat.ID, welcomeText)
}

func (b *Bot) handleAccount(msg *tgbotapi.Message) {
	user, err := b.ledger.GetUser(msg.From.ID)
	if err != nil || user == nil {
		b.reply(msg, "⚠️ Could not load your account. Please try again.")
		return
	}

	text := fmt.Sprintf(
		"🌟 Account Information 🌟\n\n"+
			"👤 Name: %s\n"+
			"🆔 User ID: %d\n"+
			"📅 Registered: %s\n\n"+
			"📊 Number of sent accounts: %d\n"+
			"💰 Balance that can be settled: %g $\n\n"+
			"Withdraw: /withdraw\n"+
			"Withdraw history: /withdrawhistory",
		user.Name, user.TelegramID,
		user.RegisteredAt.Format("2006-01-02 15:04:05"),
		user.SentAccounts, user.Balance)
	b.send(msg.Chat.ID, text)
}

// handlePhone runs the submit_phone entry point.
func (b *Bot) handlePhone(ctx context.Context, msg *tgbotapi.Message, phone string) {
	result, err := b.verification.SubmitPhone(ctx, msg.From.ID, phone)
	if err != nil {
		log.Printf("Bot: submit phone for %d: %v", msg.From.ID, err)
		b.reply(msg, "⚠️ System error. Please try again.")
		return
	}
	if result.Outcome == services.OutcomeRejected {
		b.reply(msg, "❌ "+result.Reason)
		return
	}

	prompt := b.reply(msg, fmt.Sprintf("📲 Please enter the OTP you received on %s", phone))
	msgID := 0
	if prompt != nil {
		msgID = prompt.MessageID
	}
	if err := b.ledger.SetPendingMarkers(msg.From.ID, phone, msgID); err != nil {
		log.Printf("Bot: saving pending markers for %d: %v", msg.From.ID, err)
	}
}

// handleCode runs the submit_code entry point.
func (b *Bot) handleCode(ctx context.Context, msg *tgbotapi.Message, code string) {
	result, err := b.verification.SubmitCode(ctx, msg.From.ID, code)
	if err != nil {
		log.Printf("Bot: submit code for %d: %v", msg.From.ID, err)
		b.reply(msg, "⚠️ System error. Please try again.")
		return
	}

	switch result.Outcome {
	case services.OutcomeSecondFactorRequired:
		b.reply(msg, "🔒 Please enter your 2FA password")
	case services.OutcomeSecured:
		b.processSecured(ctx, msg, result)
	default:
		b.reply(msg, "❌ Verification failed: "+result.Reason)
	}
}

// handleSecondFactor runs the submit_second_factor entry point.
func (b *Bot) handleSecondFactor(ctx context.Context, msg *tgbotapi.Message, secret string) {
	result, err := b.verification.SubmitSecondFactor(ctx, msg.From.ID, secret)
	if err != nil {
		log.Printf("Bot: submit second factor for %d: %v", msg.From.ID, err)
		b.reply(msg, "⚠️ System error. Please try again.")
		return
	}

	switch result.Outcome {
	case services.OutcomeSecured:
		b.processSecured(ctx, msg, result)
	default:
		b.reply(msg, "❌ 2FA error: "+result.Reason)
	}
}

// processSecured hands a freshly secured number over to the reward
// scheduler and tells the user what happens next.
func (b *Bot) processSecured(ctx context.Context, msg *tgbotapi.Message, result *services.SubmitResult) {
	userID := msg.From.ID

	// The intake check ran before the claim window; re-check defensively
	// right before scheduling.
	used, err := b.ledger.IsConsumed(result.Phone)
	if err != nil {
		log.Printf("Bot: consumption re-check for %s: %v", result.Phone, err)
	}
	if used {
		b.send(msg.Chat.ID, "❌ This number has already been claimed.")
		return
	}

	region := result.Region
	pending, err := b.ledger.CreatePending(userID, result.Phone, region.Price, region.ClaimTime)
	if err != nil {
		log.Printf("Bot: creating pending number for %s: %v", result.Phone, err)
		b.send(msg.Chat.ID, "⚠️ System error. Please contact support.")
		return
	}

	status := b.send(msg.Chat.ID, fmt.Sprintf(
		"✅ Account Received\n\n📞 Number: %s\n💵 Price: %g USDT\n⏳ Verified automatically after: %d seconds",
		result.Phone, region.Price, region.ClaimTime))
	msgID := 0
	if status != nil {
		msgID = status.MessageID
	}

	b.reward.Schedule(services.RewardTask{
		UserID:       userID,
		Phone:        result.Phone,
		RegionCode:   region.Code,
		ArtifactPath: result.ArtifactPath,
		Price:        region.Price,
		ClaimTime:    time.Duration(region.ClaimTime) * time.Second,
		MessageID:    msgID,
		PendingID:    pending.ID,
	})
}

// handleCancel aborts the user's running reward confirmation, or failing
// that, any in-flight verification session.
func (b *Bot) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if found, phone := b.registry.Cancel(userID); found {
		b.reply(msg, fmt.Sprintf("🛑 Cancellation requested for %s. The number will be released shortly.", phone))
		return
	}

	if b.verification.State(userID) != "" {
		b.verification.Release(ctx, userID)
		b.reply(msg, "🛑 Verification cancelled.")
		return
	}

	b.reply(msg, "ℹ️ Nothing to cancel.")
}
