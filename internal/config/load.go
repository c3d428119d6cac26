package config

import (
	"encoding/json"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-futures/internal/version"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. Credentials are never read from YAML.
const (
	EnvAPIKey         = "BINANCE_API_KEY"
	EnvSecretKey      = "BINANCE_SECRET_KEY"
	EnvTestnet        = "BINANCE_TESTNET"
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
	EnvLeverage       = "TRADING_LEVERAGE"
	EnvVolume         = "TRADING_VOLUME"
	EnvTakeProfit     = "TRADING_TAKE_PROFIT"
	EnvStopLoss       = "TRADING_STOP_LOSS"
	EnvMaxPositions   = "TRADING_MAX_POSITIONS"
	EnvKlineInterval  = "TRADING_KLINE_INTERVAL"
	EnvDataPath       = "ARGO_DATA_PATH"
)

// Load reads the YAML file at path on top of Default, applies a .env file from
// the working directory if one exists, overlays environment variables and
// validates the result. An empty path loads defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
		}
	}

	// a missing .env file is not an error
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse decodes a YAML document on top of Default and validates it without
// touching the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := version.CheckVersionCompatibility(version.GetVersion(), c.Version); err != nil {
		return err
	}

	validate := newValidator()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.Risk.Volume*float64(c.Risk.Leverage) < c.Risk.MinNotional {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"volume %.2f at leverage %d is below the minimum notional %.2f",
			c.Risk.Volume, c.Risk.Leverage, c.Risk.MinNotional)
	}

	return nil
}

// HasCredentials reports whether exchange credentials are present.
func (c Config) HasCredentials() bool {
	return c.Exchange.APIKey != "" && c.Exchange.SecretKey != ""
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("kline_interval", func(fl validator.FieldLevel) bool {
		return slices.Contains(ValidKlineIntervals, fl.Field().String())
	})

	return validate
}

func applyEnv(cfg *Config) error {
	cfg.Exchange.APIKey = envOr(EnvAPIKey, cfg.Exchange.APIKey)
	cfg.Exchange.SecretKey = envOr(EnvSecretKey, cfg.Exchange.SecretKey)
	cfg.Notify.TelegramToken = envOr(EnvTelegramToken, cfg.Notify.TelegramToken)
	cfg.Notify.TelegramChatID = envOr(EnvTelegramChatID, cfg.Notify.TelegramChatID)
	cfg.Bot.KlineInterval = envOr(EnvKlineInterval, cfg.Bot.KlineInterval)
	cfg.Journal.DataPath = envOr(EnvDataPath, cfg.Journal.DataPath)

	if v, ok := os.LookupEnv(EnvTestnet); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s", EnvTestnet)
		}

		cfg.Exchange.Testnet = b
	}

	ints := map[string]*int{
		EnvLeverage:     &cfg.Risk.Leverage,
		EnvMaxPositions: &cfg.Risk.MaxConcurrentPositions,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s", name)
			}

			*dst = n
		}
	}

	floats := map[string]*float64{
		EnvVolume:     &cfg.Risk.Volume,
		EnvTakeProfit: &cfg.Risk.TakeProfit,
		EnvStopLoss:   &cfg.Risk.StopLoss,
	}
	for name, dst := range floats {
		if v, ok := os.LookupEnv(name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s", name)
			}

			*dst = f
		}
	}

	return nil
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}

	return fallback
}

// GenerateSchema returns the JSON schema of the configuration file.
func GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Go duration such as 30s, 3m or 1h",
				}
			}

			return nil
		},
	}

	return reflector.Reflect(&Config{}), nil
}

// GenerateSchemaJSON returns the configuration schema serialized as JSON.
func GenerateSchemaJSON() (string, error) {
	schema, err := GenerateSchema()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal schema", err)
	}

	return string(data), nil
}
