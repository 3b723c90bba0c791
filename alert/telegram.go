package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts alerts to a chat via the Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegram(botToken, chatID string) (*Telegram, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram: bot token and chat id required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client:   &http.Client{Timeout: 3 * time.Second},
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, kind Kind, payload map[string]any) error {
	body := map[string]any{
		"chat_id":    t.chatID,
		"text":       formatMessage(kind, payload),
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telegram: encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: api returned %d", resp.StatusCode)
	}
	return nil
}

func formatMessage(kind Kind, payload map[string]any) string {
	var title string
	switch kind {
	case KindSignal:
		title = "📈 Signal"
	case KindFill:
		title = "✅ Fill"
	case KindRiskRejection:
		title = "🛑 Risk rejection"
	case KindError:
		title = "⚠️ Error"
	default:
		title = string(kind)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("*" + title + "*")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: `%v`", k, payload[k])
	}
	return b.String()
}
