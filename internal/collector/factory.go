package collector

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/qepting91/workshop-scraper/internal/config"
	"github.com/qepting91/workshop-scraper/internal/domain"
)

// NewCollector selects the correct implementation based on the mode
func NewCollector(cfg config.Config, logger *slog.Logger) (domain.Collector, error) {
	switch cfg.CollectorMode {
	case config.ModeLive:
		if cfg.UserAgent == "" {
			return nil, fmt.Errorf("USER_AGENT is required for live mode")
		}
		if !ValidPreference(cfg.ProxyPreference) {
			return nil, fmt.Errorf("unknown PROXY_PREFERENCE: %s", cfg.ProxyPreference)
		}
		limit := rate.Inf
		if cfg.RequestInterval > 0 {
			limit = rate.Every(cfg.RequestInterval)
		}
		return NewPublicClient(PublicOptions{
			Preference: cfg.ProxyPreference,
			UserAgent:  cfg.UserAgent,
			HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
			Limiter:    rate.NewLimiter(limit, max(cfg.RequestBurst, 1)),
			Logger:     logger,
		}), nil
	case config.ModeMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'live' or 'mock')", cfg.CollectorMode)
	}
}
