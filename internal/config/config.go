// Package config reads the scraper settings from the environment, an
// optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

const (
	ModeLive = "live"
	ModeMock = "mock"
)

type Config struct {
	CollectorMode   string
	ProxyPreference string
	UserAgent       string
	HTTPTimeout     time.Duration
	RequestInterval time.Duration
	RequestBurst    int

	EnrichLimit    int
	EnrichFidelity domain.Fidelity

	AppID   string
	PerPage int

	Port        string
	DataFile    string
	TargetsFile string
	LogLevel    slog.Level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("collector_mode", ModeLive)
	v.SetDefault("proxy_preference", "auto")
	v.SetDefault("user_agent", "workshop-scraper/1.0")
	v.SetDefault("http_timeout", "20s")
	v.SetDefault("request_interval", "250ms")
	v.SetDefault("request_burst", 2)
	v.SetDefault("enrich_limit", 8)
	v.SetDefault("enrich_fidelity", "lite")
	v.SetDefault("app_id", "294100")
	v.SetDefault("per_page", domain.DefaultPerPage)
	v.SetDefault("port", "8080")
	v.SetDefault("data_file", "data/current.json")
	v.SetDefault("targets_file", "input/targets.csv")
	v.SetDefault("log_level", "info")
}

// Load reads .env (if present) into the process environment and builds the
// Config from v. A nil v uses a fresh viper instance.
func Load(v *viper.Viper) (Config, error) {
	_ = godotenv.Load()
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	fidelity, err := domain.ParseFidelity(v.GetString("enrich_fidelity"))
	if err != nil {
		return Config{}, fmt.Errorf("ENRICH_FIDELITY: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := Config{
		CollectorMode:   strings.ToLower(strings.TrimSpace(v.GetString("collector_mode"))),
		ProxyPreference: strings.ToLower(strings.TrimSpace(v.GetString("proxy_preference"))),
		UserAgent:       v.GetString("user_agent"),
		HTTPTimeout:     v.GetDuration("http_timeout"),
		RequestInterval: v.GetDuration("request_interval"),
		RequestBurst:    v.GetInt("request_burst"),
		EnrichLimit:     v.GetInt("enrich_limit"),
		EnrichFidelity:  fidelity,
		AppID:           strings.TrimSpace(v.GetString("app_id")),
		PerPage:         v.GetInt("per_page"),
		Port:            v.GetString("port"),
		DataFile:        v.GetString("data_file"),
		TargetsFile:     v.GetString("targets_file"),
		LogLevel:        level,
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.CollectorMode {
	case ModeLive, ModeMock:
	default:
		errs = append(errs, fmt.Errorf("unknown COLLECTOR_MODE %q (use 'live' or 'mock')", c.CollectorMode))
	}
	switch c.ProxyPreference {
	case "", "auto", "jina", "allorigins":
	default:
		errs = append(errs, fmt.Errorf("unknown PROXY_PREFERENCE %q (use 'auto', 'jina' or 'allorigins')", c.ProxyPreference))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.RequestBurst <= 0 {
		errs = append(errs, errors.New("REQUEST_BURST must be positive"))
	}
	if c.EnrichLimit < 0 {
		errs = append(errs, errors.New("ENRICH_LIMIT must not be negative"))
	}
	if c.PerPage <= 0 {
		errs = append(errs, errors.New("PER_PAGE must be positive"))
	}
	if c.AppID == "" {
		errs = append(errs, errors.New("APP_ID is required"))
	}
	return errors.Join(errs...)
}
