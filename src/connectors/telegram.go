package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// TelegramClient delivers operator alerts. Delivery is fire-and-forget:
// failures are logged and returned, but callers never block the trading
// loop on them.
type TelegramClient struct {
	botToken string
	chatID   string
	http     *resty.Client
}

func NewTelegramClient(botToken, chatID string) *TelegramClient {
	httpClient := resty.New().
		SetBaseURL("https://api.telegram.org").
		SetTimeout(10 * time.Second)

	return &TelegramClient{
		botToken: botToken,
		chatID:   chatID,
		http:     httpClient,
	}
}

// SendAlert posts a message to the configured chat. A missing token or
// chat id disables delivery silently so local runs work without Telegram.
func (c *TelegramClient) SendAlert(ctx context.Context, message string) error {
	if c.botToken == "" || c.chatID == "" {
		logger.Debug("Telegram not configured, dropping alert")
		return nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"chat_id": c.chatID,
			"text":    message,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", c.botToken))

	if err != nil {
		logger.WithError(err).Error("Telegram alert failed")
		return err
	}

	if resp.StatusCode() != 200 {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
		logger.WithError(err).Error("Telegram alert failed")
		return err
	}

	logger.WithField("message", message).Info("Telegram alert sent")
	return nil
}
