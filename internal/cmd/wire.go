package cmd

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/portalgate/portalgate/internal/cache"
	"github.com/portalgate/portalgate/internal/config"
	"github.com/portalgate/portalgate/internal/export"
	"github.com/portalgate/portalgate/internal/ratelimit"
	"github.com/portalgate/portalgate/internal/upstream"
)

// loadConfig decodes the merged viper state set up by initConfig.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

func buildCache(cfg *config.Config) cache.Cache {
	if cfg.Cache.Backend == "memory" {
		return cache.NewMemoryCache(cfg.Cache.JanitorInterval)
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

func buildUpstream(cfg *config.Config, logger *logging.Logger) *upstream.Client {
	client := &upstream.Client{
		BaseURL:    cfg.Upstream.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Upstream.Timeout},
		MaxRetries: cfg.Upstream.MaxRetries,
		Timeout:    cfg.Upstream.Timeout,
		Logger:     logger,
	}
	if cfg.Upstream.CourtesyRPS > 0 {
		burst := cfg.Upstream.CourtesyBurst
		if burst < 1 {
			burst = 1
		}
		client.Courtesy = rate.NewLimiter(rate.Limit(cfg.Upstream.CourtesyRPS), burst)
	}
	return client
}

func buildLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Window:            cfg.RateLimit.Window,
		CleanupInterval:   cfg.RateLimit.CleanupInterval,
		EvictAfter:        cfg.RateLimit.EvictAfter,
	})
}

func buildExporter(cfg *config.Config, client *upstream.Client, logger *logging.Logger) *export.Exporter {
	return &export.Exporter{
		Client: client,
		Dir:    cfg.Export.Dir,
		Logger: logger,
	}
}
