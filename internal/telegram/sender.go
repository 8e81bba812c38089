// Package telegram integrates the pairing core with the Telegram Bot API.
// It receives updates, routes commands and relayed text into the core, and
// delivers messages and service notices back to users. User identifiers
// throughout the system are Telegram chat IDs.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/anonpair/chat-bot/internal/pairing"
)

// Connect authenticates against the Bot API and returns a ready client.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	api.Debug = false
	log.Printf("[telegram] authorized as @%s", api.Self.UserName)
	return api, nil
}

// Sender delivers relayed content and service notices to Telegram users.
// It implements pairing.Messenger and pairing.Notifier.
type Sender struct {
	api *tgbotapi.BotAPI
}

// NewSender creates a Sender on top of an authorized Bot API client.
func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

// SendText delivers text to a user. Failures caused by the recipient being
// gone (blocked the bot, deleted their account) wrap
// pairing.ErrPartnerUnreachable so the relay can unpair the pair.
func (s *Sender) SendText(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := s.api.Send(msg); err != nil {
		if isUnreachable(err) {
			return fmt.Errorf("telegram: send to %d: %w", userID, pairing.ErrPartnerUnreachable)
		}
		return fmt.Errorf("telegram: send to %d: %w", userID, err)
	}
	return nil
}

// noticeText maps core notices to the user-facing wording.
var noticeText = map[pairing.Notice]string{
	pairing.NoticePaired:         "Partner found! Everything you send here is relayed anonymously. Send /stop to end the chat.",
	pairing.NoticePairingFailed:  "Something went wrong while setting up the chat. Please try /search again.",
	pairing.NoticeSearchTimeout:  "No partner found right now. Send /search to try again.",
	pairing.NoticeIdleDisconnect: "The chat was closed after a long silence. Send /search to find a new partner.",
	pairing.NoticePartnerLeft:    "Your partner left the chat. Send /search to find a new one.",
}

// Notify sends a service notice. Delivery is best effort: an unreachable or
// erroring recipient is logged and otherwise ignored.
func (s *Sender) Notify(ctx context.Context, userID int64, notice pairing.Notice) {
	text, ok := noticeText[notice]
	if !ok {
		log.Printf("[telegram] unknown notice %q for %d", notice, userID)
		return
	}
	if err := s.SendText(ctx, userID, text); err != nil {
		log.Printf("[telegram] notify %d (%s): %v", userID, notice, err)
	}
}

// isUnreachable reports whether a Bot API error means the recipient can no
// longer be messaged at all, as opposed to a transient failure.
func isUnreachable(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == 403 {
		return true // Forbidden: blocked, deactivated, or never started the bot
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "deactivated") ||
		strings.Contains(msg, "chat not found")
}
