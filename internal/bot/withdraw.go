package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vipreceiver/backend/internal/services"
)

func (b *Bot) handleWithdraw(msg *tgbotapi.Message) {
	userID := msg.From.ID
	user, err := b.ledger.GetUser(userID)
	if err != nil || user == nil {
		b.reply(msg, "⚠️ Could not load your account. Please try again.")
		return
	}

	if err := b.withdrawals.CheckConditions(userID, user.Balance); err != nil {
		if errors.Is(err, services.ErrWithdrawalPending) {
			b.send(msg.Chat.ID, "❌ You already have a pending withdrawal")
		} else {
			b.send(msg.Chat.ID, "❌ "+err.Error())
		}
		return
	}

	b.send(msg.Chat.ID, "💳 Please enter your leader card name to proceed with withdrawal:")
	b.mu.Lock()
	b.awaitingCards[userID] = user.Balance
	b.mu.Unlock()
}

func (b *Bot) handleLeaderCard(msg *tgbotapi.Message, card string) {
	userID := msg.From.ID

	b.mu.Lock()
	amount := b.awaitingCards[userID]
	b.mu.Unlock()

	withdrawal, err := b.withdrawals.Request(userID, card, amount)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLeaderCard) {
			b.send(msg.Chat.ID, "❌ Incorrect leader card. Please ask admin or try again.")
			return
		}
		log.Printf("Bot: withdrawal request for %d: %v", userID, err)
		b.send(msg.Chat.ID, "⚠️ Could not submit the withdrawal. Please try again.")
		return
	}

	b.mu.Lock()
	delete(b.awaitingCards, userID)
	b.mu.Unlock()

	b.send(msg.Chat.ID, fmt.Sprintf(
		"✅ Withdrawal request for %g$ submitted with leader card: %s. Please wait for admin approval.",
		withdrawal.Amount, card))

	if b.cfg.WithdrawalLogChatID != 0 {
		b.send(b.cfg.WithdrawalLogChatID, fmt.Sprintf(
			"💸 New withdrawal request:\nUser ID: %d\nAmount: %g$\nCard: %s\nApprove with /paycard %s",
			userID, withdrawal.Amount, card, card))
	}
}

func (b *Bot) handleWithdrawHistory(msg *tgbotapi.Message) {
	withdrawals, err := b.withdrawals.History(msg.From.ID)
	if err != nil {
		b.reply(msg, "⚠️ Could not load your withdrawal history.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏛️ Your withdrawal requests:\n")
	if len(withdrawals) == 0 {
		sb.WriteString("No withdrawals yet.")
	} else {
		for _, w := range withdrawals {
			sb.WriteString(fmt.Sprintf("- %g$ | %s | %s\n",
				w.Amount, w.Status, w.CreatedAt.Format("2006-01-02 15:04:05")))
		}
	}
	b.send(msg.Chat.ID, sb.String())
}

// handlePayCard approves every pending withdrawal on a leader card and
// notifies the affected users. Admin only.
func (b *Bot) handlePayCard(msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(msg, "❌ You are not authorized to use this command.")
		return
	}

	card := strings.TrimSpace(msg.CommandArguments())
	if card == "" {
		b.reply(msg, "Usage: /paycard <card_name>")
		return
	}

	approved, err := b.withdrawals.ApproveByCard(card)
	if err != nil {
		log.Printf("Bot: approving withdrawals for card %s: %v", card, err)
		b.reply(msg, "⚠️ Approval failed. Please try again.")
		return
	}
	if len(approved) == 0 {
		b.reply(msg, fmt.Sprintf("❌ No pending withdrawals found for card '%s'.", card))
		return
	}

	for _, w := range approved {
		b.send(w.TelegramID, fmt.Sprintf(
			"✅ Your withdrawal of %g$ with leader card '%s' has been approved and completed. Thank you!",
			w.Amount, card))
	}
	b.reply(msg, fmt.Sprintf("✅ All pending withdrawals for card '%s' have been approved and users notified.", card))
}

// handleAddCard issues a new leader card name. Admin only.
func (b *Bot) handleAddCard(msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(msg, "❌ You are not authorized to use this command.")
		return
	}

	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg, "Usage: /addcard <card_name>")
		return
	}
	if err := b.withdrawals.AddLeaderCard(name); err != nil {
		b.reply(msg, "⚠️ Could not add the card. Please try again.")
		return
	}
	b.reply(msg, fmt.Sprintf("✅ Leader card '%s' added.", name))
}
