// Package notify sends a short batch summary to a Telegram chat.
package notify

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"go-linkedin-scraper/internal/batch"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegram rejects messages over 4096 characters
const (
	maxListed  = 10
	maxMessage = 4000
)

// Sender is the part of the bot API we use; *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramWithSender(api, chatID, log), nil
}

func NewTelegramWithSender(api Sender, chatID int64, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}
	return &Telegram{api: api, chatID: chatID, log: log}
}

// SendReport posts the succeeded/failed counts, the scraped postings and every failure kind.
func (t *Telegram) SendReport(r *batch.Report) error {
	if err := t.send(FormatReport(r)); err != nil {
		return fmt.Errorf("send telegram summary: %w", err)
	}
	t.log.Info("📨 Summary sent to Telegram", slog.String("run_id", r.RunID))
	return nil
}

func (t *Telegram) SendError(errReq error) error {
	return t.send(fmt.Sprintf("⚠️ <b>Scrape failed</b>:\n%s", html.EscapeString(errReq.Error())))
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return err
}

// FormatReport renders a report as Telegram HTML.
func FormatReport(r *batch.Report) string {
	var b strings.Builder
	status := "finished"
	if r.Canceled {
		status = "stopped"
	}
	fmt.Fprintf(&b, "📊 <b>LinkedIn scrape %s</b>\n", status)
	fmt.Fprintf(&b, "✅ Succeeded: %d\n❌ Failed: %d\n", r.Succeeded(), r.Failed())
	if p := r.Pending(); p > 0 {
		fmt.Fprintf(&b, "⏸️ Not processed: %d\n", p)
	}

	jobs := r.Postings()
	if len(jobs) > 0 {
		b.WriteString("\n")
	}
	for i, j := range jobs {
		if i == maxListed {
			fmt.Fprintf(&b, "… and %d more\n", len(jobs)-maxListed)
			break
		}
		line := fmt.Sprintf("• <a href=\"%s\">%s</a>", html.EscapeString(j.URL), html.EscapeString(j.Title))
		if j.CompanyName != "" {
			line += " · " + html.EscapeString(j.CompanyName)
		}
		b.WriteString(line + "\n")
	}

	failures := r.Failures()
	if len(failures) > 0 {
		b.WriteString("\n")
	}
	for i, f := range failures {
		if i == maxListed {
			fmt.Fprintf(&b, "… and %d more\n", len(failures)-maxListed)
			break
		}
		kind := string(f.Kind())
		if kind == "" {
			kind = "Canceled"
		}
		fmt.Fprintf(&b, "• <code>%s</code> %s\n", kind, html.EscapeString(f.URL))
	}

	text := b.String()
	if runes := []rune(text); len(runes) > maxMessage {
		text = string(runes[:maxMessage]) + "…"
	}
	return text
}
