package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vipreceiver/backend/pkg/validation"
)

func (b *Bot) requireAdmin(msg *tgbotapi.Message) bool {
	if b.cfg.IsAdmin(msg.From.ID) {
		return true
	}
	b.reply(msg, "❌ You are not authorized to use this command.")
	return false
}

func (b *Bot) regionArg(msg *tgbotapi.Message, usage string) (string, bool) {
	code := strings.TrimSpace(msg.CommandArguments())
	if !validation.ValidateRegionCode(code) {
		b.reply(msg, usage)
		return "", false
	}
	return code, true
}

// handleGetRegion sends every session file of one region as a zip archive.
func (b *Bot) handleGetRegion(msg *tgbotapi.Message) {
	if !b.requireAdmin(msg) {
		return
	}
	code, ok := b.regionArg(msg, "Usage: /get +country_code\nExample: /get +1")
	if !ok {
		return
	}

	data, count, err := b.reports.ZipRegion(code)
	if err != nil {
		log.Printf("Bot: zipping sessions for %s: %v", code, err)
		b.reply(msg, "⚠️ Export failed. Please try again.")
		return
	}
	if count == 0 {
		b.reply(msg, fmt.Sprintf("❌ No sessions found for %s", code))
		return
	}

	name := fmt.Sprintf("sessions_%s_%s.zip", code, time.Now().Format("20060102_150405"))
	b.sendDocument(msg.Chat.ID, name, data, fmt.Sprintf(
		"📦 Session Files for %s\n\n📁 Files: %d\n💾 Size: %d bytes", code, count, len(data)))
}

// handleGetAll sends session files of all regions in one zip archive.
func (b *Bot) handleGetAll(msg *tgbotapi.Message) {
	if !b.requireAdmin(msg) {
		return
	}

	data, count, err := b.reports.ZipAll()
	if err != nil {
		log.Printf("Bot: zipping all sessions: %v", err)
		b.reply(msg, "⚠️ Export failed. Please try again.")
		return
	}
	if count == 0 {
		b.reply(msg, "❌ No sessions found in any country.")
		return
	}

	name := fmt.Sprintf("sessions_all_%s.zip", time.Now().Format("20060102_150405"))
	b.sendDocument(msg.Chat.ID, name, data, "All sessions (all countries)")
}

// handleGetInfo sends a JSON inventory of one region's session files.
func (b *Bot) handleGetInfo(msg *tgbotapi.Message) {
	if !b.requireAdmin(msg) {
		return
	}
	code, ok := b.regionArg(msg, "Usage: /getinfo +country_code\nExample: /getinfo +1")
	if !ok {
		return
	}

	data, err := b.reports.RegionInfoJSON(code)
	if err != nil {
		log.Printf("Bot: session info for %s: %v", code, err)
		b.reply(msg, "⚠️ Export failed. Please try again.")
		return
	}
	if data == nil {
		b.reply(msg, fmt.Sprintf("❌ No sessions found for %s", code))
		return
	}

	name := fmt.Sprintf("sessions_%s.json", code)
	b.sendDocument(msg.Chat.ID, name, data, fmt.Sprintf("Session info for %s", code))
}

// handleReport sends the PDF inventory summary across all regions.
func (b *Bot) handleReport(msg *tgbotapi.Message) {
	if !b.requireAdmin(msg) {
		return
	}

	data, err := b.reports.InventoryPDF()
	if err != nil {
		log.Printf("Bot: inventory report: %v", err)
		b.reply(msg, "⚠️ Report generation failed. Please try again.")
		return
	}

	name := fmt.Sprintf("inventory_%s.pdf", time.Now().Format("20060102_150405"))
	b.sendDocument(msg.Chat.ID, name, data, "📊 Session inventory")
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Bot: sending document %s: %v", name, err)
	}
}
