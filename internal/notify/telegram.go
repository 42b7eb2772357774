// Package notify delivers alert messages to outbound messaging endpoints.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phquake/quakewatch/internal/domain"
)

// Telegram sends alert messages through the Telegram Bot API.
type Telegram struct {
	token      string
	chatID     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(token, chatID string, timeout time.Duration, logger *slog.Logger) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.telegram.org",
		logger:  logger,
	}
}

// SendAlert formats the newly-alerted events into one message and delivers
// it. One message per cycle regardless of how many events qualified.
func (t *Telegram) SendAlert(ctx context.Context, events []domain.QuakeEvent) error {
	if len(events) == 0 {
		return nil
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {AlertMessage(events)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, body)
	}

	var tr response
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !tr.OK {
		return fmt.Errorf("telegram API rejected message: %s", tr.Description)
	}

	t.logger.Info("alert notification delivered", "events", len(events))
	return nil
}

// AlertMessage renders the outbound alert text.
func AlertMessage(events []domain.QuakeEvent) string {
	var b strings.Builder
	b.WriteString("Earthquake alert\n")
	for _, e := range events {
		b.WriteString("\n")
		if e.Magnitude != nil {
			fmt.Fprintf(&b, "M%.1f", *e.Magnitude)
		} else {
			b.WriteString("M unknown")
		}
		if e.Place != "" {
			fmt.Fprintf(&b, " %s", e.Place)
		}
		if at := e.OccurredAt(); !at.IsZero() {
			fmt.Fprintf(&b, "\n%s", at.Format("2006-01-02 15:04 UTC"))
		}
		if e.Lat != nil && e.Lon != nil {
			fmt.Fprintf(&b, "\n%.4f, %.4f", *e.Lat, *e.Lon)
		}
		if e.DepthKm != nil {
			fmt.Fprintf(&b, " (depth %.0f km)", *e.DepthKm)
		}
		fmt.Fprintf(&b, "\nsource: %s\n", e.Source)
	}
	return b.String()
}

type response struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}
