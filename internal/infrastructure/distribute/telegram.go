package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/ports"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender sends the rendered newsletter to a chat via the bot API.
type TelegramSender struct {
	apiBase  string
	botToken string
	chatID   string
	caption  string
	client   *http.Client
}

var _ ports.Distributor = (*TelegramSender)(nil)

// NewTelegramSender registers bot token and chat identifier.
func NewTelegramSender(cfg config.TelegramConfig, caption string, client *http.Client) (*TelegramSender, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram sender misconfigured")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TelegramSender{
		apiBase:  telegramAPI,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		caption:  caption,
		client:   client,
	}, nil
}

// Name implements ports.Distributor.
func (t *TelegramSender) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Distribute uploads the file with sendDocument and returns the message id.
func (t *TelegramSender) Distribute(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("chat_id", t.chatID); err != nil {
		return "", fmt.Errorf("write form: %w", err)
	}
	if t.caption != "" {
		if err := form.WriteField("caption", t.caption); err != nil {
			return "", fmt.Errorf("write form: %w", err)
		}
	}
	part, err := form.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("write form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy artifact: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendDocument", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var out telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("telegram error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return "", fmt.Errorf("telegram error: %s: %s", resp.Status, out.Description)
	}
	return strconv.FormatInt(out.Result.MessageID, 10), nil
}
