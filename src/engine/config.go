package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols               []string      `envconfig:"SYMBOLS"`
	InitialCapital        float64       `envconfig:"INITIAL_CAPITAL" default:"10000"`
	StopLossPercent       float64       `envconfig:"STOP_LOSS_PERCENT" default:"0.02"`
	TakeProfitPercent     float64       `envconfig:"TAKE_PROFIT_PERCENT" default:"0.05"`
	RSIPeriod             int           `envconfig:"RSI_PERIOD" default:"14"`
	PatternMinDiffPercent float64       `envconfig:"PATTERN_MIN_DIFF_PERCENT" default:"0.5"`
	LookbackDays          int           `envconfig:"LOOKBACK_DAYS" default:"14"`
	TickInterval          time.Duration `envconfig:"TICK_INTERVAL" default:"5s"`
	BackoffInterval       time.Duration `envconfig:"BACKOFF_INTERVAL" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Validate enforces the startup configuration surface. Any violation is
// fatal: the loop never starts on an invalid configuration.
func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("SYMBOLS must be a non-empty list")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL must be > 0, got %v", c.InitialCapital)
	}
	if c.StopLossPercent <= 0 || c.StopLossPercent >= 1 {
		return fmt.Errorf("STOP_LOSS_PERCENT must be in (0,1), got %v", c.StopLossPercent)
	}
	if c.TakeProfitPercent <= 0 || c.TakeProfitPercent >= 1 {
		return fmt.Errorf("TAKE_PROFIT_PERCENT must be in (0,1), got %v", c.TakeProfitPercent)
	}
	if c.RSIPeriod <= 0 {
		return fmt.Errorf("RSI_PERIOD must be > 0, got %d", c.RSIPeriod)
	}
	if c.PatternMinDiffPercent < 0 {
		return fmt.Errorf("PATTERN_MIN_DIFF_PERCENT must be >= 0, got %v", c.PatternMinDiffPercent)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("LOOKBACK_DAYS must be > 0, got %d", c.LookbackDays)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be > 0, got %v", c.TickInterval)
	}
	if c.BackoffInterval <= 0 {
		return fmt.Errorf("BACKOFF_INTERVAL must be > 0, got %v", c.BackoffInterval)
	}
	return nil
}
