package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramPrefix starts every Telegram target, as in "telegram:-1001234".
const TelegramPrefix = "telegram:"

const maxTelegramMessage = 4096

// sender is the part of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends plain-text messages through a bot.
type Telegram struct {
	bot   sender
	retry *RetryPolicy
}

// NewTelegram authenticates the bot token against the Bot API. Each message
// chunk is retried on its own according to retry; nil sends once.
func NewTelegram(token string, retry *RetryPolicy) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	slog.Debug("telegram bot ready", "username", bot.Self.UserName)
	return &Telegram{bot: bot, retry: retry}, nil
}

// Send delivers text to chatID, split into chunks Telegram accepts. A
// failed chunk is retried without resending the chunks before it.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	parts := splitMessage(text)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		send := func() error {
			_, err := t.bot.Send(tgbotapi.NewMessage(chatID, part))
			return err
		}
		var err error
		if t.retry != nil {
			err = t.retry.Execute(ctx, send)
		} else {
			err = send()
		}
		if err != nil {
			return fmt.Errorf("send telegram message %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

// Handler adapts Send to a Registry handler for "telegram:<chat-id>"
// targets.
func (t *Telegram) Handler() Handler {
	return func(ctx context.Context, target, message string) error {
		chatID, err := ParseTelegramTarget(target)
		if err != nil {
			return err
		}
		return t.Send(ctx, chatID, message)
	}
}

// ParseTelegramTarget extracts the chat id from "telegram:<chat-id>".
func ParseTelegramTarget(target string) (int64, error) {
	raw := strings.TrimPrefix(target, TelegramPrefix)
	if raw == target {
		return 0, fmt.Errorf("invalid telegram target: %s", target)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
	}
	return id, nil
}

// TelegramTarget builds the target string for chatID.
func TelegramTarget(chatID int64) string {
	return TelegramPrefix + strconv.FormatInt(chatID, 10)
}

// splitMessage cuts text into chunks of at most maxTelegramMessage bytes,
// never inside a UTF-8 sequence.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end >= len(text) {
			parts = append(parts, text)
			break
		}
		for end > 0 && !isRuneStart(text[end]) {
			end--
		}
		// No rune start in range: the text is not UTF-8, cut at the limit.
		if end == 0 {
			end = maxTelegramMessage
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
