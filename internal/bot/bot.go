package bot

import (
	"context"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/services"
	"github.com/vipreceiver/backend/pkg/validation"
)

// Bot is the Telegram transport. It delivers inbound commands and messages
// to the verification core and implements the Notifier the reward scheduler
// reports through. Updates are handled sequentially, so one user's
// submissions can never interleave.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	verification *services.VerificationService
	reward       *services.RewardService
	registry     *services.CancelRegistry
	ledger       *services.LedgerService
	withdrawals  *services.WithdrawalService
	reports      *services.ReportService
	membership   *MembershipGate

	mu            sync.Mutex
	awaitingCards map[int64]float64 // user -> balance quoted at /withdraw time
}

func New(cfg *config.Config, verification *services.VerificationService, registry *services.CancelRegistry, ledger *services.LedgerService, withdrawals *services.WithdrawalService, reports *services.ReportService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	log.Printf("Bot: authorized as @%s", api.Self.UserName)

	return &Bot{
		api:           api,
		cfg:           cfg,
		verification:  verification,
		registry:      registry,
		ledger:        ledger,
		withdrawals:   withdrawals,
		reports:       reports,
		awaitingCards: make(map[int64]float64),
	}, nil
}

// AttachRewardService wires the reward scheduler in after construction; the
// scheduler needs the bot as its Notifier, so the two are created in turn.
func (b *Bot) AttachRewardService(reward *services.RewardService) {
	b.reward = reward
}

// AttachMembershipGate wires the channel gate in after construction; the
// gate needs the bot's API client, so the two are created in turn.
func (b *Bot) AttachMembershipGate(gate *MembershipGate) {
	b.membership = gate
}

// API exposes the underlying client for collaborators (membership gate).
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	userID := msg.From.ID

	allowed, err := b.membership.Allow(ctx, userID, msg.From.FirstName, msg.From.UserName)
	if err != nil {
		log.Printf("Bot: membership check for %d: %v", userID, err)
	}
	if !allowed {
		b.membership.Prompt(msg.Chat.ID)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	text := validation.SanitizeString(msg.Text)
	switch {
	case validation.ValidatePhone(text):
		b.handlePhone(ctx, msg, text)
	case b.awaitingCard(userID):
		b.handleLeaderCard(msg, text)
	case b.verification.State(userID) == services.StateAwaitingSecondFactor:
		b.handleSecondFactor(ctx, msg, text)
	case b.verification.State(userID) == services.StateAwaitingCode:
		b.handleCode(ctx, msg, text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "help":
		b.reply(msg, helpText)
	case "account":
		b.handleAccount(msg)
	case "cancel":
		b.handleCancel(ctx, msg)
	case "withdraw":
		b.handleWithdraw(msg)
	case "withdrawhistory":
		b.handleWithdrawHistory(msg)
	case "paycard":
		b.handlePayCard(msg)
	case "addcard":
		b.handleAddCard(msg)
	case "get":
		b.handleGetRegion(msg)
	case "getall":
		b.handleGetAll(msg)
	case "getinfo":
		b.handleGetInfo(msg)
	case "report":
		b.handleReport(msg)
	}
}

// SendMessage implements services.Notifier.
func (b *Bot) SendMessage(chatID int64, text string) (int, error) {
	m := tgbotapi.NewMessage(chatID, text)
	sent, err := b.api.Send(m)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage implements services.Notifier.
func (b *Bot) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) *tgbotapi.Message {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ReplyToMessageID = msg.MessageID
	sent, err := b.api.Send(m)
	if err != nil {
		log.Printf("Bot: reply to %d failed: %v", msg.Chat.ID, err)
		return nil
	}
	return &sent
}

func (b *Bot) send(chatID int64, text string) *tgbotapi.Message {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		log.Printf("Bot: send to %d failed: %v", chatID, err)
		return nil
	}
	return &sent
}

func (b *Bot) awaitingCard(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.awaitingCards[userID]
	return ok
}
