package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey,
		providers.WithBaseURL(cfg.WeatherAPIBaseURL),
	)
	if !provider.Configured() {
		log.Warn("WEATHERAPI_KEY is not set; /api/weather will answer 500 until it is configured")
	} else {
		log.Infow("weather provider configured",
			"provider", provider.Name(),
			"key", logger.MaskSensitiveString(cfg.WeatherAPIKey, 3, 3),
		)
	}

	// Upstream responses are reused for the revalidation window.
	memStore := store.NewMemoryStore(cfg.CacheMaxEntries, cfg.CacheTTL)
	service := weather.NewService(memStore, provider)

	sched := scheduler.New(memStore, cfg.CacheSweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AccessLog:      cfg.AccessLog,
	})

	go func() {
		log.Infow("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
}
