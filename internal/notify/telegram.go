package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"marktplaats-watcher/internal/listing"
)

// Telegram pushes messages through the Telegram Bot API. Listings with an
// image go out as a photo with caption, the rest as plain text; both carry a
// single inline button linking the advertisement.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegram constructs a Telegram notifier. Empty credentials make every
// send a silent no-op, matching an operator who has not configured the bot.
func NewTelegram(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *Telegram {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telegram_notifier").Logger(),
	}
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type messagePayload struct {
	ChatID                string          `json:"chat_id"`
	Text                  string          `json:"text,omitempty"`
	Photo                 string          `json:"photo,omitempty"`
	Caption               string          `json:"caption,omitempty"`
	DisableWebPagePreview bool            `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *inlineKeyboard `json:"reply_markup,omitempty"`
}

// NotifyListing sends one message for a newly seen listing.
func (t *Telegram) NotifyListing(ctx context.Context, l listing.Listing) error {
	if !t.configured() {
		return nil
	}

	caption := renderCaption(l)
	markup := &inlineKeyboard{
		InlineKeyboard: [][]inlineButton{{{Text: "Bekijk advertentie", URL: l.URL}}},
	}

	if l.ImageURL != "" {
		return t.call(ctx, "sendPhoto", messagePayload{
			ChatID:      t.chatID,
			Photo:       l.ImageURL,
			Caption:     caption,
			ReplyMarkup: markup,
		})
	}

	return t.call(ctx, "sendMessage", messagePayload{
		ChatID:      t.chatID,
		Text:        caption,
		ReplyMarkup: markup,
	})
}

// NotifyText sends a plain status message.
func (t *Telegram) NotifyText(ctx context.Context, text string) error {
	if !t.configured() {
		return nil
	}
	return t.call(ctx, "sendMessage", messagePayload{
		ChatID: t.chatID,
		Text:   text,
	})
}

func (t *Telegram) configured() bool {
	return t.botToken != "" && t.chatID != ""
}

func (t *Telegram) call(ctx context.Context, method string, payload messagePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram %s returned status %d", method, resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram %s returned ok=false", method)
	}

	t.logger.Debug().Str("method", method).Msg("telegram message sent")
	return nil
}

func renderCaption(l listing.Listing) string {
	var b strings.Builder
	b.WriteString("Titel = ")
	b.WriteString(l.Title)
	b.WriteString("\nPrijs = ")
	b.WriteString(l.PriceDisplay)
	if posted := strings.TrimSpace(l.PostedAt); posted != "" {
		b.WriteString("\nDatum = ")
		b.WriteString(posted)
	}
	return b.String()
}

var _ Notifier = (*Telegram)(nil)
