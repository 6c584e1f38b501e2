// Package config loads the application configuration from YAML, a .env
// file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockFeatures/internal/features"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Name          string  `yaml:"name" validate:"oneof=yahoo rest mock"`
		BaseURL       string  `yaml:"base_url" validate:"omitempty,url"`
		APIKey        string  `yaml:"api_key"`
		RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
		Burst         int     `yaml:"burst" validate:"gte=0"`
		Concurrency   int     `yaml:"concurrency" validate:"gte=0,lte=64"`
	} `yaml:"data_source"`
	Tickers      []string `yaml:"tickers" validate:"dive,required"`
	TickerSuffix string   `yaml:"ticker_suffix"`
	Query        struct {
		Period   string `yaml:"period" validate:"omitempty,oneof=1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
		Interval string `yaml:"interval" validate:"oneof=1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo"`
		Start    string `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
		End      string `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
	} `yaml:"query"`
	Store struct {
		Kind       string `yaml:"kind" validate:"oneof=csv sqlite"`
		Root       string `yaml:"root"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`
	Features features.Config `yaml:"features"`
	Export   struct {
		Dir    string `yaml:"dir"`
		Format string `yaml:"format" validate:"oneof=csv xlsx"`
	} `yaml:"export"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" validate:"required"`
	} `yaml:"schedule"`
	Recorder struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A .env file next to the working directory is
// loaded first when present.
func Load(path string) (*Config, error) {
	if err := LoadEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// LoadEnv loads a .env file into the process environment if it exists.
// Variables already set are not overridden.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.DataSource.Name = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = splitList(v)
	}
	if v := os.Getenv("TICKER_SUFFIX"); v != "" {
		c.TickerSuffix = v
	}
	if v := os.Getenv("STORE_KIND"); v != "" {
		c.Store.Kind = v
	}
	if v := os.Getenv("STORE_ROOT"); v != "" {
		c.Store.Root = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Recorder.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Pretty = b
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Name == "" {
		c.DataSource.Name = "yahoo"
	}
	if c.DataSource.RatePerSecond == 0 {
		c.DataSource.RatePerSecond = 2
	}
	if c.DataSource.Burst == 0 {
		c.DataSource.Burst = 1
	}
	if c.Query.Period == "" && c.Query.Start == "" {
		c.Query.Period = "max"
	}
	if c.Query.Interval == "" {
		c.Query.Interval = "1d"
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "csv"
	}
	if c.Store.Root == "" {
		c.Store.Root = "data/bars"
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "data/bars.db"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "data/features"
	}
	if c.Export.Format == "" {
		c.Export.Format = "csv"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 30 18 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Features.Indicators) == 0 && !c.Features.IncludeClose {
		c.Features.IncludeClose = true
	}
}

// Validate checks struct constraints and the semantic rules that span
// fields. Every problem found is reported.
func (c *Config) Validate() error {
	var errs error

	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = errors.Join(errs, fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = errors.Join(errs, err)
		}
	}

	if len(c.Tickers) == 0 {
		errs = errors.Join(errs, fmt.Errorf("tickers cannot be empty"))
	}
	if c.DataSource.Name == "rest" && c.DataSource.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("data_source.base_url is required for the rest source"))
	}
	if c.Query.Start == "" && c.Query.End != "" {
		errs = errors.Join(errs, fmt.Errorf("query.end needs query.start"))
	}
	if start, end, err := c.QueryRange(); err == nil && !end.IsZero() && end.Before(start) {
		errs = errors.Join(errs, fmt.Errorf("query.end %s is before query.start %s", c.Query.End, c.Query.Start))
	}
	if _, err := CronParser.Parse(c.Schedule.RefreshCron); err != nil {
		errs = errors.Join(errs, fmt.Errorf("schedule.refresh_cron: %w", err))
	}
	if err := c.Features.Validate(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("features: %w", err))
	}
	return errs
}

// CronParser parses six-field specs with a leading seconds field, as the
// scheduler runs them.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// QueryRange parses the optional query start and end dates.
func (c *Config) QueryRange() (start, end time.Time, err error) {
	if c.Query.Start != "" {
		if start, err = time.Parse(time.DateOnly, c.Query.Start); err != nil {
			return start, end, fmt.Errorf("query.start: %w", err)
		}
	}
	if c.Query.End != "" {
		if end, err = time.Parse(time.DateOnly, c.Query.End); err != nil {
			return start, end, fmt.Errorf("query.end: %w", err)
		}
	}
	return start, end, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
