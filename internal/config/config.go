// Package config loads the immutable run configuration.
//
// A Config is loaded once at startup, validated, and then passed by value to
// every component that needs it. Nothing reads configuration globally.
package config

import (
	"time"

	"github.com/rxtech-lab/argo-futures/internal/backtest/commission_fee"
)

// ValidKlineIntervals are the kline intervals accepted by Binance futures.
var ValidKlineIntervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}

// MarginType of a futures position.
type MarginType string

const (
	MarginTypeIsolated MarginType = "ISOLATED"
	MarginTypeCrossed  MarginType = "CROSSED"
)

// Config is the complete run configuration.
type Config struct {
	Version    string          `yaml:"version" json:"version" jsonschema:"title=Version,description=Engine version the file was written for. Empty accepts any compatible engine"`
	Risk       RiskConfig      `yaml:"risk" json:"risk" validate:"required"`
	Indicators IndicatorConfig `yaml:"indicators" json:"indicators" validate:"required"`
	Bot        BotConfig       `yaml:"bot" json:"bot" validate:"required"`
	Backtest   BacktestConfig  `yaml:"backtest" json:"backtest" validate:"required"`
	Exchange   ExchangeConfig  `yaml:"exchange" json:"exchange"`
	Notify     NotifyConfig    `yaml:"notify" json:"notify"`
	Server     ServerConfig    `yaml:"server" json:"server"`
	Journal    JournalConfig   `yaml:"journal" json:"journal"`
}

// RiskConfig bounds every transition that commits capital.
type RiskConfig struct {
	Leverage               int        `yaml:"leverage" json:"leverage" jsonschema:"title=Leverage,description=Futures leverage applied to every position,minimum=1,maximum=125,default=10" validate:"gte=1,lte=125"`
	Volume                 float64    `yaml:"volume" json:"volume" jsonschema:"title=Volume,description=Margin committed per trade in USDT,minimum=5,maximum=1000,default=15" validate:"gte=5,lte=1000"`
	TakeProfit             float64    `yaml:"take_profit" json:"take_profit" jsonschema:"title=Take Profit,description=Take-profit distance as a fraction of entry price,default=0.02" validate:"gt=0,lt=0.2"`
	StopLoss               float64    `yaml:"stop_loss" json:"stop_loss" jsonschema:"title=Stop Loss,description=Stop-loss distance as a fraction of entry price,default=0.015" validate:"gt=0,lt=0.1"`
	MaxConcurrentPositions int        `yaml:"max_concurrent_positions" json:"max_concurrent_positions" jsonschema:"title=Max Concurrent Positions,minimum=1,maximum=50,default=5" validate:"gte=1,lte=50"`
	MinSignalStrength      int        `yaml:"min_signal_strength" json:"min_signal_strength" jsonschema:"title=Min Signal Strength,minimum=1,maximum=5,default=2" validate:"gte=1,lte=5"`
	MinBacktestScore       float64    `yaml:"min_backtest_score" json:"min_backtest_score" jsonschema:"title=Min Backtest Score,minimum=0,maximum=100,default=45" validate:"gte=0,lte=100"`
	MinBalance             float64    `yaml:"min_balance" json:"min_balance" jsonschema:"title=Min Balance,description=Balance floor in USDT below which no position is opened,default=10" validate:"gte=0"`
	MinNotional            float64    `yaml:"min_notional" json:"min_notional" jsonschema:"title=Min Notional,description=Exchange minimum order notional in USDT,default=5" validate:"gte=0"`
	MaxNotional            float64    `yaml:"max_notional" json:"max_notional" jsonschema:"title=Max Notional,description=Maximum order notional in USDT,default=1000" validate:"gtfield=MinNotional"`
	MaxBalanceFraction     float64    `yaml:"max_balance_fraction" json:"max_balance_fraction" jsonschema:"title=Max Balance Fraction,description=Largest share of balance one position may use as margin,default=0.1" validate:"gt=0,lte=1"`
	MarginType             MarginType `yaml:"margin_type" json:"margin_type" jsonschema:"title=Margin Type,enum=ISOLATED,enum=CROSSED,default=ISOLATED" validate:"oneof=ISOLATED CROSSED"`
}

// IndicatorConfig parameterizes the shipped strategies.
type IndicatorConfig struct {
	RSIPeriod          int     `yaml:"rsi_period" json:"rsi_period" jsonschema:"default=14" validate:"gte=2"`
	RSIOversold        float64 `yaml:"rsi_oversold" json:"rsi_oversold" jsonschema:"default=30" validate:"gt=0,ltfield=RSIOverbought"`
	RSIOverbought      float64 `yaml:"rsi_overbought" json:"rsi_overbought" jsonschema:"default=70" validate:"lt=100"`
	BBPeriod           int     `yaml:"bb_period" json:"bb_period" jsonschema:"default=20" validate:"gte=2"`
	BBStdDev           float64 `yaml:"bb_std_dev" json:"bb_std_dev" jsonschema:"default=2" validate:"gt=0"`
	MACDFast           int     `yaml:"macd_fast" json:"macd_fast" jsonschema:"default=12" validate:"gte=1,ltfield=MACDSlow"`
	MACDSlow           int     `yaml:"macd_slow" json:"macd_slow" jsonschema:"default=26" validate:"gte=2"`
	MACDSignal         int     `yaml:"macd_signal" json:"macd_signal" jsonschema:"default=9" validate:"gte=1"`
	EMAShort           int     `yaml:"ema_short" json:"ema_short" jsonschema:"default=50" validate:"gte=1,ltfield=EMALong"`
	EMAMedium          int     `yaml:"ema_medium" json:"ema_medium" jsonschema:"default=100" validate:"gte=1"`
	EMALong            int     `yaml:"ema_long" json:"ema_long" jsonschema:"default=200" validate:"gte=2"`
	StochPeriod        int     `yaml:"stoch_period" json:"stoch_period" jsonschema:"default=14" validate:"gte=1"`
	StochSmoothing     int     `yaml:"stoch_smoothing" json:"stoch_smoothing" jsonschema:"default=3" validate:"gte=1"`
	StochOversold      float64 `yaml:"stoch_oversold" json:"stoch_oversold" jsonschema:"default=20" validate:"gt=0,ltfield=StochOverbought"`
	StochOverbought    float64 `yaml:"stoch_overbought" json:"stoch_overbought" jsonschema:"default=80" validate:"lt=100"`
	FibLookback        int     `yaml:"fib_lookback" json:"fib_lookback" jsonschema:"default=50" validate:"gte=2"`
	VolumePeriod       int     `yaml:"volume_period" json:"volume_period" jsonschema:"default=20" validate:"gte=1"`
	VolumeThreshold    float64 `yaml:"volume_threshold" json:"volume_threshold" jsonschema:"default=1.5" validate:"gt=0,lte=10"`
	BandProximity      float64 `yaml:"band_proximity" json:"band_proximity" jsonschema:"description=Tolerance for close near a Bollinger band,default=0.01" validate:"gte=0,lt=0.1"`
	FibProximity       float64 `yaml:"fib_proximity" json:"fib_proximity" jsonschema:"description=Tolerance for close near a Fibonacci level,default=0.005" validate:"gte=0,lt=0.1"`
	TrendSlopeLookback int     `yaml:"trend_slope_lookback" json:"trend_slope_lookback" jsonschema:"description=Bars used to measure a trend filter slope,default=1" validate:"gte=1"`
}

// BotConfig controls the evaluation loop.
type BotConfig struct {
	Symbols              []string      `yaml:"symbols" json:"symbols" jsonschema:"description=Symbols to trade. Empty means all USDT perpetuals"`
	MaxSymbols           int           `yaml:"max_symbols" json:"max_symbols" jsonschema:"default=50" validate:"gte=1"`
	QuoteAsset           string        `yaml:"quote_asset" json:"quote_asset" jsonschema:"default=USDT" validate:"required"`
	KlineInterval        string        `yaml:"kline_interval" json:"kline_interval" jsonschema:"default=15m" validate:"kline_interval"`
	LookbackBars         int           `yaml:"lookback_bars" json:"lookback_bars" jsonschema:"description=Bars fetched per evaluation,default=300" validate:"gte=10,lte=1500"`
	TickInterval         time.Duration `yaml:"tick_interval" json:"tick_interval" jsonschema:"description=Go duration such as 30s or 3m,default=3m" validate:"gt=0"`
	MaxParallelSymbols   int           `yaml:"max_parallel_symbols" json:"max_parallel_symbols" jsonschema:"default=8" validate:"gte=1"`
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors" json:"max_consecutive_errors" jsonschema:"default=10" validate:"gte=1"`
	StrategiesFile       string        `yaml:"strategies_file" json:"strategies_file" jsonschema:"description=Optional YAML file with strategy definitions"`
	ActiveStrategies     []string      `yaml:"active_strategies" json:"active_strategies" jsonschema:"description=Strategy ids to evaluate. Empty means all"`
}

// BacktestConfig controls simulation and recomputation.
type BacktestConfig struct {
	Enabled           bool                  `yaml:"enabled" json:"enabled" jsonschema:"description=Gate live signals on backtest scores,default=true"`
	HistoryBars       int                   `yaml:"history_bars" json:"history_bars" jsonschema:"default=1000" validate:"gte=50,lte=1500"`
	RecomputeInterval time.Duration         `yaml:"recompute_interval" json:"recompute_interval" jsonschema:"description=Go duration such as 30s or 3m,default=1h" validate:"gt=0"`
	InitialBalance    float64               `yaml:"initial_balance" json:"initial_balance" jsonschema:"default=100" validate:"gt=0"`
	Broker            commission_fee.Broker `yaml:"broker" json:"broker" jsonschema:"default=binance_futures" validate:"oneof=binance_futures zero_commission"`
	FeeRate           float64               `yaml:"fee_rate" json:"fee_rate" jsonschema:"description=Fee per side as a fraction of notional,default=0.0005" validate:"gte=0,lt=0.01"`
}

// ExchangeConfig holds exchange connectivity settings. Credentials come from the environment.
type ExchangeConfig struct {
	APIKey           string        `yaml:"-" json:"-"`
	SecretKey        string        `yaml:"-" json:"-"`
	Testnet          bool          `yaml:"testnet" json:"testnet"`
	BaseURL          string        `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout" jsonschema:"description=Go duration such as 30s or 3m,default=10s" validate:"gt=0"`
	ConfirmTimeout   time.Duration `yaml:"confirm_timeout" json:"confirm_timeout" jsonschema:"description=Go duration such as 30s or 3m,default=5s" validate:"gt=0"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff" json:"rate_limit_backoff" jsonschema:"description=Go duration such as 30s or 3m,default=1m" validate:"gt=0"`
}

// NotifyConfig selects notification channels and categories.
type NotifyConfig struct {
	WebhookURLs        []string `yaml:"webhook_urls" json:"webhook_urls" validate:"dive,url"`
	TelegramToken      string   `yaml:"-" json:"-"`
	TelegramChatID     string   `yaml:"telegram_chat_id" json:"telegram_chat_id"`
	BufferSize         int      `yaml:"buffer_size" json:"buffer_size" jsonschema:"default=256" validate:"gte=1"`
	NotifyOnTrades     bool     `yaml:"notify_on_trades" json:"notify_on_trades" jsonschema:"default=true"`
	NotifyOnErrors     bool     `yaml:"notify_on_errors" json:"notify_on_errors" jsonschema:"default=true"`
	NotifyOnStartup    bool     `yaml:"notify_on_startup" json:"notify_on_startup" jsonschema:"default=true"`
	NotifyOnBalanceLow bool     `yaml:"notify_on_balance_low" json:"notify_on_balance_low" jsonschema:"default=true"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr" jsonschema:"default=:8080" validate:"required_if=Enabled true"`
}

// JournalConfig configures the audit journal output.
type JournalConfig struct {
	DataPath string `yaml:"data_path" json:"data_path" jsonschema:"description=Root folder for run sessions,default=data" validate:"required"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Risk: RiskConfig{
			Leverage:               10,
			Volume:                 15,
			TakeProfit:             0.02,
			StopLoss:               0.015,
			MaxConcurrentPositions: 5,
			MinSignalStrength:      2,
			MinBacktestScore:       45,
			MinBalance:             10,
			MinNotional:            5,
			MaxNotional:            1000,
			MaxBalanceFraction:     0.1,
			MarginType:             MarginTypeIsolated,
		},
		Indicators: IndicatorConfig{
			RSIPeriod:          14,
			RSIOversold:        30,
			RSIOverbought:      70,
			BBPeriod:           20,
			BBStdDev:           2,
			MACDFast:           12,
			MACDSlow:           26,
			MACDSignal:         9,
			EMAShort:           50,
			EMAMedium:          100,
			EMALong:            200,
			StochPeriod:        14,
			StochSmoothing:     3,
			StochOversold:      20,
			StochOverbought:    80,
			FibLookback:        50,
			VolumePeriod:       20,
			VolumeThreshold:    1.5,
			BandProximity:      0.01,
			FibProximity:       0.005,
			TrendSlopeLookback: 1,
		},
		Bot: BotConfig{
			Symbols:              nil,
			MaxSymbols:           50,
			QuoteAsset:           "USDT",
			KlineInterval:        "15m",
			LookbackBars:         300,
			TickInterval:         3 * time.Minute,
			MaxParallelSymbols:   8,
			MaxConsecutiveErrors: 10,
			StrategiesFile:       "",
			ActiveStrategies:     nil,
		},
		Backtest: BacktestConfig{
			Enabled:           true,
			HistoryBars:       1000,
			RecomputeInterval: time.Hour,
			InitialBalance:    100,
			Broker:            commission_fee.BrokerBinanceFutures,
			FeeRate:           0.0005,
		},
		Exchange: ExchangeConfig{
			APIKey:           "",
			SecretKey:        "",
			Testnet:          false,
			BaseURL:          "",
			RequestTimeout:   10 * time.Second,
			ConfirmTimeout:   5 * time.Second,
			RateLimitBackoff: time.Minute,
		},
		Notify: NotifyConfig{
			WebhookURLs:        nil,
			TelegramToken:      "",
			TelegramChatID:     "",
			BufferSize:         256,
			NotifyOnTrades:     true,
			NotifyOnErrors:     true,
			NotifyOnStartup:    true,
			NotifyOnBalanceLow: true,
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    ":8080",
		},
		Journal: JournalConfig{
			DataPath: "data",
		},
	}
}
