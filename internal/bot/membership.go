package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/services"
)

// MembershipGate admits only members of the required channel. Positive
// results are cached in Redis so the Telegram API is not hit on every
// message; a Redis outage just means more lookups.
type MembershipGate struct {
	api    *tgbotapi.BotAPI
	cfg    *config.Config
	redis  *redis.Client
	ledger *services.LedgerService
}

func NewMembershipGate(api *tgbotapi.BotAPI, cfg *config.Config, redisClient *redis.Client, ledger *services.LedgerService) *MembershipGate {
	return &MembershipGate{api: api, cfg: cfg, redis: redisClient, ledger: ledger}
}

// Allow registers the user on first contact and checks channel membership.
func (g *MembershipGate) Allow(ctx context.Context, userID int64, name, username string) (bool, error) {
	if _, err := g.ledger.EnsureUser(userID, name, username); err != nil {
		return false, err
	}

	key := fmt.Sprintf("member:%d", userID)
	if g.redis != nil {
		if cached, err := g.redis.Get(ctx, key).Result(); err == nil && cached == "1" {
			return true, nil
		}
	}

	member, err := g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: g.cfg.RequiredChannel,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, err
	}

	switch member.Status {
	case "member", "administrator", "creator":
		if g.redis != nil {
			if err := g.redis.Set(ctx, key, "1", g.cfg.MembershipCacheTTL).Err(); err != nil {
				log.Printf("Membership: caching result for %d: %v", userID, err)
			}
		}
		return true, nil
	}
	return false, nil
}

// Prompt asks the user to join the channel, attaching a QR code with the
// invite link.
func (g *MembershipGate) Prompt(chatID int64) {
	link := fmt.Sprintf("https://t.me/%s", strings.TrimPrefix(g.cfg.RequiredChannel, "@"))
	text := fmt.Sprintf(
		"⚠️ Channel Verification Required\n\nTo use this bot, you must join our channel first:\n%s\n\nAfter joining, send /start again.",
		link)

	png, err := qrcode.Encode(link, qrcode.Medium, 512)
	if err != nil {
		log.Printf("Membership: QR encode failed: %v", err)
		if _, err := g.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			log.Printf("Membership: prompt to %d failed: %v", chatID, err)
		}
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "join.png", Bytes: png})
	photo.Caption = text
	if _, err := g.api.Send(photo); err != nil {
		log.Printf("Membership: prompt to %d failed: %v", chatID, err)
	}
}
