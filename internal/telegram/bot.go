package telegram

import (
	"context"
	"errors"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/anonpair/chat-bot/internal/pairing"
	"github.com/anonpair/chat-bot/internal/record"
	"github.com/anonpair/chat-bot/internal/session"
)

const welcomeText = "Welcome! This bot pairs you with a random stranger for an anonymous chat.\n\n" +
	"/search — find a partner\n" +
	"/next — leave the current chat and find a new partner\n" +
	"/stop — end the chat or cancel the search\n" +
	"/status — show what you are doing right now"

// Bot runs the Telegram update loop and routes commands and messages into
// the pairing core.
type Bot struct {
	api     *tgbotapi.BotAPI
	core    *pairing.Service
	records *record.Store
}

// NewBot creates the update-loop handler. records is used to create the
// durable record on first contact.
func NewBot(api *tgbotapi.BotAPI, core *pairing.Service, records *record.Store) *Bot {
	return &Bot{api: api, core: core, records: records}
}

// Run consumes updates until ctx is cancelled. Each message is handled on
// the shared long-polling goroutine; the core's own locking serializes
// state changes.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	log.Println("[telegram] update loop started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("[telegram] update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				log.Println("[telegram] update channel closed")
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.relay(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if err := b.records.Ensure(ctx, userID); err != nil {
			log.Printf("[telegram] ensure record for %d: %v", userID, err)
		}
		b.reply(userID, welcomeText)

	case "search":
		b.search(ctx, userID)

	case "next":
		// Leave the current chat (if any), then search again.
		b.core.EndChat(ctx, userID)
		b.search(ctx, userID)

	case "stop", "end":
		switch {
		case b.core.EndChat(ctx, userID):
			b.reply(userID, "Chat ended. Send /search to find a new partner.")
		case b.core.CancelSearch(ctx, userID):
			b.reply(userID, "Search cancelled.")
		default:
			b.reply(userID, "Nothing to stop — you are not chatting or searching.")
		}

	case "cancel":
		if b.core.CancelSearch(ctx, userID) {
			b.reply(userID, "Search cancelled.")
		} else {
			b.reply(userID, "You are not searching right now.")
		}

	case "status":
		b.status(ctx, userID)

	default:
		b.reply(userID, "Unknown command. Try /search, /next, /stop or /status.")
	}
}

func (b *Bot) search(ctx context.Context, userID int64) {
	matched, err := b.core.RequestSearch(ctx, userID)
	switch {
	case errors.Is(err, pairing.ErrAlreadyChatting):
		b.reply(userID, "You are already chatting. Send /stop to end the chat first.")
	case errors.Is(err, pairing.ErrAlreadySearching):
		b.reply(userID, "You are already searching. Hold on.")
	case errors.Is(err, pairing.ErrPersistFailed):
		// The notifier already told both parties to retry.
	case err != nil:
		log.Printf("[telegram] search for %d: %v", userID, err)
		b.reply(userID, "Something went wrong. Please try /search again.")
	case !matched:
		b.reply(userID, "Searching for a partner...")
		// When matched, the paired notice already went out to both sides.
	}
}

func (b *Bot) status(ctx context.Context, userID int64) {
	v := b.core.Status(ctx, userID)
	switch v.Status {
	case session.StatusChatting:
		b.reply(userID, "You are in an anonymous chat. Send /stop to end it.")
	case session.StatusSearching:
		b.reply(userID, "You are searching for a partner. Send /cancel to stop.")
	default:
		b.reply(userID, "You are idle. Send /search to find a partner.")
	}
}

// relay forwards a non-command message to the user's partner. Only text and
// media captions travel; forwarding the media itself would leak the sender.
func (b *Bot) relay(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.Chat.ID

	content := extractContent(msg)
	if content == "" {
		b.reply(userID, "Only text (or a media caption) can be relayed.")
		return
	}

	err := b.core.RelayMessage(ctx, userID, content)
	switch {
	case errors.Is(err, pairing.ErrNotConnected):
		b.reply(userID, "You are not in a chat. Send /search to find a partner.")
	case errors.Is(err, pairing.ErrPartnerUnreachable):
		b.reply(userID, "Your partner can no longer be reached, so the chat was closed. Send /search to find a new one.")
	case err != nil:
		log.Printf("[telegram] relay from %d: %v", userID, err)
		b.reply(userID, "Could not deliver your message. Please try again.")
	}
}

// extractContent uniformly pulls text or a media caption from a message.
func extractContent(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// reply sends a direct response to the user, logging delivery problems.
func (b *Bot) reply(userID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		log.Printf("[telegram] reply to %d: %v", userID, err)
	}
}
