package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLen is the maximum Telegram message length.
const MaxMessageLen = 4096

// Sender is the outbound Telegram surface consumed by the handlers and
// the responder worker. The interface enables fakes in tests.
type Sender interface {
	SendText(chatID int64, text string) error
	SendHTML(chatID int64, text string) error
	SendTyping(chatID int64) error
	SendURLButton(chatID int64, text, label, url string) error
	FileURL(fileID string) (string, error)
}

// Client wraps the Telegram Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

// New creates a Telegram client and verifies the token with getMe.
func New(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Client{bot: bot}, nil
}

// Username returns the bot's username.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// SetWebhook registers the public webhook URL with Telegram.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("failed to build webhook config: %w", err)
	}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// SendText sends a plain-text message, splitting it if it exceeds the
// Telegram message length limit.
func (c *Client) SendText(chatID int64, text string) error {
	for _, chunk := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if _, err := c.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

// SendHTML sends an HTML-formatted message (used for the business card
// and the welcome/profile replies). Falls back to plain text if
// Telegram rejects the markup.
func (c *Client) SendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return c.SendText(chatID, text)
	}
	return nil
}

// SendTyping sends the "typing..." chat action.
func (c *Client) SendTyping(chatID int64) error {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := c.bot.Request(action); err != nil {
		return fmt.Errorf("failed to send chat action: %w", err)
	}
	return nil
}

// SendURLButton sends a message with a single inline URL button
// (the Strava authorization link).
func (c *Client) SendURLButton(chatID int64, text, label, url string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(label, url),
		),
	)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message with button: %w", err)
	}
	return nil
}

// FileURL resolves a Telegram file id (voice note) to a download URL.
func (c *Client) FileURL(fileID string) (string, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file URL: %w", err)
	}
	return url, nil
}

// splitMessage splits text into chunks within the Telegram limit,
// preferring newline boundaries.
func splitMessage(text string) []string {
	if len(text) <= MaxMessageLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > MaxMessageLen {
		cut := MaxMessageLen
		for i := MaxMessageLen; i > MaxMessageLen/2; i-- {
			if text[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

var _ Sender = (*Client)(nil)
