// Package notify delivers trade notifications. The Telegram notifier posts
// to the Bot API; Noop stands in when no transport is configured. All sends
// are best-effort.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kis-trading-bot/internal/interfaces"
)

const telegramAPIBase = "https://api.telegram.org"

type Telegram struct {
	token  string
	chatID string
	base   string
	http   *http.Client
}

var _ interfaces.Notifier = (*Telegram)(nil)

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		base:   telegramAPIBase,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTelegramWithBase is for tests that point the notifier at a local server.
func NewTelegramWithBase(token, chatID, base string) *Telegram {
	t := NewTelegram(token, chatID)
	t.base = base
	return t
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	body, _ := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram send: %s: %s", resp.Status, b)
	}
	return nil
}
