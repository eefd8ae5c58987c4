package config

import (
	"fmt"
	"strings"
	"time"

	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/strategy"
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Trading modes.
const (
	ModeSimulate = "simulate"
	ModeDemoAPI  = "demo-api"
	ModeLiveAPI  = "live-api"
)

// Price feeds.
const (
	FeedReplay = "replay"
	FeedRest   = "rest"
	FeedStream = "stream"
)

// Config holds all configuration for the application.
type Config struct {
	Binance  Binance  `mapstructure:"binance"`
	Trading  Trading  `mapstructure:"trading"`
	Grids    []Grid   `mapstructure:"grids" validate:"required,min=1,dive"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Storage  Storage  `mapstructure:"storage"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gte=1"`
	// BaseURL and StreamURL override the endpoints derived from Testnet.
	BaseURL   string `mapstructure:"base_url"`
	StreamURL string `mapstructure:"stream_url"`
}

// Trading holds the configuration of the control loop.
type Trading struct {
	Mode                   string        `mapstructure:"mode" validate:"oneof=simulate demo-api live-api"`
	Capital                float64       `mapstructure:"capital" validate:"gt=0"`
	CheckInterval          time.Duration `mapstructure:"check_interval" validate:"gt=0"`
	FetchTimeout           time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	PriceFeed              string        `mapstructure:"price_feed" validate:"oneof=replay rest stream"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures" validate:"gte=1"`
	Autostart              bool          `mapstructure:"autostart"`
	Replay                 Replay        `mapstructure:"replay"`
}

// Replay configures the replayed price series used by the replay feed.
type Replay struct {
	Source   string        `mapstructure:"source" validate:"oneof=klines csv random"`
	File     string        `mapstructure:"file"`
	Interval string        `mapstructure:"interval"`
	Lookback time.Duration `mapstructure:"lookback"`
	// Random walk parameters.
	Seed   int64   `mapstructure:"seed"`
	Start  float64 `mapstructure:"start" validate:"gte=0"`
	Vol    float64 `mapstructure:"vol" validate:"gte=0,lt=1"`
	Points int     `mapstructure:"points" validate:"gte=0"`
}

// Grid holds the parameters of one independently traded grid.
type Grid struct {
	Name              string  `mapstructure:"name" validate:"required"`
	Symbol            string  `mapstructure:"symbol" validate:"required,uppercase"`
	GridPercent       float64 `mapstructure:"grid_percent" validate:"gt=0,lt=100"`
	InvestPercent     float64 `mapstructure:"invest_percent" validate:"gt=0,lte=100"`
	TakeProfitPercent float64 `mapstructure:"take_profit_percent" validate:"gt=0"`
	StopLossEnabled   bool    `mapstructure:"stop_loss_enabled"`
	StopLossPercent   float64 `mapstructure:"stop_loss_percent" validate:"gte=0,lt=100"`
	// MaxPositions of zero means no cap.
	MaxPositions int `mapstructure:"max_positions" validate:"gte=0"`
	// CapitalShare is the fraction of trading capital given to the grid.
	// Zero splits whatever the other grids leave equally.
	CapitalShare float64 `mapstructure:"capital_share" validate:"gte=0,lte=1"`
}

// Server holds the configuration for the web servers.
type Server struct {
	Port   int `mapstructure:"port" validate:"gte=0,lte=65535"`
	UIPort int `mapstructure:"ui_port" validate:"gte=0,lte=65535"`
}

// Database holds the configuration for the SQL databases.
type Database struct {
	DSN         string `mapstructure:"dsn"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// Storage selects the persistence driver.
type Storage struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres csv json"`
	Dir    string `mapstructure:"dir"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// LoadConfig reads configuration from file or environment variables and
// validates it.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfiguration, "could not read config", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfiguration, "could not decode config", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.rate_limit", 20)      // requests per second
	v.SetDefault("binance.rate_limit_burst", 5) // burst size

	v.SetDefault("trading.mode", ModeSimulate)
	v.SetDefault("trading.capital", 1000)
	v.SetDefault("trading.check_interval", "5s")
	v.SetDefault("trading.fetch_timeout", "10s")
	v.SetDefault("trading.price_feed", FeedReplay)
	v.SetDefault("trading.max_consecutive_failures", 10)
	v.SetDefault("trading.autostart", true)
	v.SetDefault("trading.replay.source", "klines")
	v.SetDefault("trading.replay.interval", "1m")
	v.SetDefault("trading.replay.lookback", "24h")
	v.SetDefault("trading.replay.start", 100)
	v.SetDefault("trading.replay.vol", 0.002)
	v.SetDefault("trading.replay.points", 1440)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ui_port", 8081)
	v.SetDefault("database.dsn", "grid_bot.db")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dir", "data")
}

// Validate checks field ranges and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.Trading.Mode != ModeSimulate && (c.Binance.ApiKey == "" || c.Binance.SecretKey == "") {
		return errors.Newf(errors.ErrCodeInvalidCredentials, "mode %s requires binance.apiKey and binance.secretKey", c.Trading.Mode)
	}
	if c.Trading.PriceFeed == FeedReplay && c.Trading.Replay.Source == "csv" && c.Trading.Replay.File == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "trading.replay.file is required for the csv replay source")
	}
	if c.Storage.Driver == "postgres" && c.Database.PostgresURL == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "database.postgres_url is required for the postgres driver")
	}

	names := make(map[string]struct{}, len(c.Grids))
	shares := 0.0
	for _, g := range c.Grids {
		if _, dup := names[g.Name]; dup {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "duplicate grid name %q", g.Name)
		}
		names[g.Name] = struct{}{}

		if g.StopLossEnabled && g.StopLossPercent <= 0 {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "grid %s: stop_loss_percent must be positive when stop loss is enabled", g.Name)
		}
		if err := g.StrategyConfig().Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "grid %s", g.Name)
		}
		shares += g.CapitalShare
	}
	if shares > 1+1e-9 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "grid capital shares add up to %.4f, more than 1", shares)
	}

	return nil
}

// StrategyConfig converts the grid parameters into the evaluator's config.
func (g Grid) StrategyConfig() strategy.Config {
	cfg := strategy.Config{
		BuyDropPercent:    decimal.NewFromFloat(g.GridPercent),
		TakeProfitPercent: decimal.NewFromFloat(g.TakeProfitPercent),
		InvestPercent:     decimal.NewFromFloat(g.InvestPercent),
		StopLossPercent:   optional.None[decimal.Decimal](),
		MaxPositions:      optional.None[int](),
	}
	if g.StopLossEnabled {
		cfg.StopLossPercent = optional.Some(decimal.NewFromFloat(g.StopLossPercent))
	}
	if g.MaxPositions > 0 {
		cfg.MaxPositions = optional.Some(g.MaxPositions)
	}
	return cfg
}

// GridCapital returns the starting capital of every grid, in config order.
// Grids with an explicit share get it; the rest split the remainder equally.
func (c *Config) GridCapital() []decimal.Decimal {
	total := decimal.NewFromFloat(c.Trading.Capital)
	out := make([]decimal.Decimal, len(c.Grids))

	remaining := total
	unset := 0
	for i, g := range c.Grids {
		if g.CapitalShare > 0 {
			out[i] = total.Mul(decimal.NewFromFloat(g.CapitalShare))
			remaining = remaining.Sub(out[i])
		} else {
			unset++
		}
	}

	if unset > 0 {
		each := remaining.Div(decimal.NewFromInt(int64(unset)))
		for i, g := range c.Grids {
			if g.CapitalShare == 0 {
				out[i] = each
			}
		}
	}
	return out
}

// Address formats a listen address for port.
func Address(port int) string {
	return fmt.Sprintf(":%d", port)
}
