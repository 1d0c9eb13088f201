package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the single immutable configuration value for the process. It is
// loaded and validated once at startup and passed into each component's
// constructor; there is no runtime mutation.
type Config struct {
	Mode              string   `yaml:"mode"`
	IgnoreMarketHours bool     `yaml:"ignore_market_hours"`
	PollSeconds       int      `yaml:"poll_seconds"`
	LookbackDays      int      `yaml:"lookback_days"`
	Candidates        []string `yaml:"candidates"`

	Indicators struct {
		ShortMAWindow    int     `yaml:"short_ma_window"`
		LongMAWindow     int     `yaml:"long_ma_window"`
		RSIWindow        int     `yaml:"rsi_window"`
		BollingerWindow  int     `yaml:"bollinger_window"`
		BollingerStdDev  float64 `yaml:"bollinger_stddev"`
		MACDFastWindow   int     `yaml:"macd_fast_window"`
		MACDSlowWindow   int     `yaml:"macd_slow_window"`
		MACDSignalWindow int     `yaml:"macd_signal_window"`
	} `yaml:"indicators"`

	Strategy struct {
		LowOffset        float64 `yaml:"low_offset"`
		HighOffset       float64 `yaml:"high_offset"`
		RSIBuyThreshold  float64 `yaml:"rsi_buy_threshold"`
		EWOBuyThreshold  float64 `yaml:"ewo_buy_threshold"`
		EWOSellThreshold float64 `yaml:"ewo_sell_threshold"`
		StopLossPercent  float64 `yaml:"stop_loss_percent"`
	} `yaml:"strategy"`

	Order struct {
		AllocationPerSymbol float64 `yaml:"allocation_per_symbol"`
		DCADivisions        int     `yaml:"dca_divisions"`
		SettleWaitSeconds   int     `yaml:"settle_wait_seconds"`
	} `yaml:"order"`

	Control struct {
		BuyCooldownMinutes  int    `yaml:"buy_cooldown_minutes"`
		SellCooldownMinutes int    `yaml:"sell_cooldown_minutes"`
		MaxDailyTrades      int    `yaml:"max_daily_trades"`
		MinHoldingDays      int    `yaml:"min_holding_days"`
		RetentionDays       int    `yaml:"retention_days"`
		StateFile           string `yaml:"state_file"`
	} `yaml:"control"`

	Telegram struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"telegram"`
}

// Validate rejects configurations that would run with undefined behaviour.
// Tuning values have documented defaults and are filled in by LoadConfig;
// everything checked here is required.
func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode %q: must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Candidates) == 0 {
		return errors.New("candidates cannot be empty")
	}
	if c.Order.AllocationPerSymbol <= 0 {
		return fmt.Errorf("order.allocation_per_symbol must be positive, got %.2f", c.Order.AllocationPerSymbol)
	}
	ind := c.Indicators
	for name, w := range map[string]int{
		"indicators.short_ma_window":    ind.ShortMAWindow,
		"indicators.long_ma_window":     ind.LongMAWindow,
		"indicators.rsi_window":         ind.RSIWindow,
		"indicators.bollinger_window":   ind.BollingerWindow,
		"indicators.macd_fast_window":   ind.MACDFastWindow,
		"indicators.macd_slow_window":   ind.MACDSlowWindow,
		"indicators.macd_signal_window": ind.MACDSignalWindow,
	} {
		if w <= 0 {
			return fmt.Errorf("%s must be a positive window, got %d", name, w)
		}
	}
	if ind.BollingerStdDev <= 0 {
		return fmt.Errorf("indicators.bollinger_stddev must be positive, got %.2f", ind.BollingerStdDev)
	}
	if ind.ShortMAWindow >= ind.LongMAWindow {
		return fmt.Errorf("indicators.short_ma_window (%d) must be smaller than long_ma_window (%d)", ind.ShortMAWindow, ind.LongMAWindow)
	}
	if ind.MACDFastWindow >= ind.MACDSlowWindow {
		return fmt.Errorf("indicators.macd_fast_window (%d) must be smaller than macd_slow_window (%d)", ind.MACDFastWindow, ind.MACDSlowWindow)
	}
	if c.Strategy.StopLossPercent >= 0 {
		return fmt.Errorf("strategy.stop_loss_percent must be negative, got %.2f", c.Strategy.StopLossPercent)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// applyDefaults fills the tuning values that may be omitted.
func applyDefaults(c *Config) {
	if c.PollSeconds == 0 {
		c.PollSeconds = 300
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 60
	}
	if c.Strategy.LowOffset == 0 {
		c.Strategy.LowOffset = 0.98
	}
	if c.Strategy.HighOffset == 0 {
		c.Strategy.HighOffset = 1.05
	}
	if c.Strategy.RSIBuyThreshold == 0 {
		c.Strategy.RSIBuyThreshold = 50
	}
	if c.Strategy.EWOBuyThreshold == 0 {
		c.Strategy.EWOBuyThreshold = 5
	}
	if c.Strategy.EWOSellThreshold == 0 {
		c.Strategy.EWOSellThreshold = -5
	}
	if c.Strategy.StopLossPercent == 0 {
		c.Strategy.StopLossPercent = -0.35
	}
	if c.Order.DCADivisions == 0 {
		c.Order.DCADivisions = 3
	}
	if c.Order.SettleWaitSeconds == 0 {
		c.Order.SettleWaitSeconds = 5
	}
	if c.Control.BuyCooldownMinutes == 0 {
		c.Control.BuyCooldownMinutes = 30
	}
	if c.Control.SellCooldownMinutes == 0 {
		c.Control.SellCooldownMinutes = 15
	}
	if c.Control.MaxDailyTrades == 0 {
		c.Control.MaxDailyTrades = 10
	}
	if c.Control.MinHoldingDays == 0 {
		c.Control.MinHoldingDays = 3
	}
	if c.Control.RetentionDays == 0 {
		c.Control.RetentionDays = 30
	}
	if c.Control.StateFile == "" {
		c.Control.StateFile = "trade_history.json"
	}
}
