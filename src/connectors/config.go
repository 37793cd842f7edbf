package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	FyersClientID    string `envconfig:"FYERS_CLIENT_ID"`
	FyersAccessToken string `envconfig:"FYERS_ACCESS_TOKEN"`
	FyersBaseURL     string `envconfig:"FYERS_BASE_URL" default:"https://api.fyers.in"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
