package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/geolocation"
	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/offline"
	"github.com/i474232898/weather-dashboard/internal/settings"
)

const usage = `Commands:
  <place>          show the weather for a place name or "lat,lon"
  :here            use the current location
  :retry           fetch the current location again
  :default         switch to the default location
  :suggest <text>  list matching popular cities
  :units c|f       temperature unit
  :clock 12h|24h   time format
  :reset           forget saved settings
  :quit            exit
`

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dashboardURL := flag.String("url", cfg.DashboardURL, "Dashboard server base URL")
	location := flag.String("location", "", "Location to show on start")
	redisAddr := flag.String("redis", cfg.RedisAddr, "Redis address for the offline cache (memory when empty)")
	settingsFile := flag.String("settings", cfg.SettingsFile, "Settings file (memory when empty)")
	geoProvider := flag.String("geo", cfg.GeoProvider, "Location source: static, ip, denied or empty")
	geoLat := flag.Float64("lat", cfg.GeoLat, "Latitude for -geo static")
	geoLon := flag.Float64("lon", cfg.GeoLon, "Longitude for -geo static")
	flag.Parse()
	cfg.DashboardURL = strings.TrimRight(*dashboardURL, "/")
	cfg.RedisAddr = *redisAddr
	cfg.SettingsFile = *settingsFile
	cfg.GeoProvider = strings.ToLower(*geoProvider)
	cfg.GeoLat, cfg.GeoLon = *geoLat, *geoLon

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, err := newOfflineTransport(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up offline cache: %v", err)
	}

	repo, err := newSettingsRepository(cfg.SettingsFile)
	if err != nil {
		log.Fatalf("failed to open settings: %v", err)
	}

	locator, err := newLocator(cfg)
	if err != nil {
		log.Fatalf("invalid geolocation config: %v", err)
	}

	ui := &terminal{out: os.Stdout, repo: repo, showWelcome: !repo.HasVisited()}
	coord := dashboard.NewCoordinator(
		dashboard.NewAPIClient(cfg.DashboardURL, &http.Client{Transport: transport}),
		dashboard.WithDebounceDelay(cfg.DebounceDelay),
		dashboard.WithDefaultLocation(cfg.DefaultLocation),
		dashboard.WithGeolocation(geolocation.NewAdapter(locator, geolocation.WithFallback(cfg.DefaultLocation))),
		dashboard.WithOnChange(ui.render),
	)
	defer coord.Close()

	ui.render(coord.State())
	if *location != "" {
		ui.visit()
		coord.SetLocation(*location)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				// Let an outstanding fetch finish before exiting on EOF.
				waitIdle(ctx, coord, cfg.DebounceDelay)
				return
			}
			if quit := handle(ctx, line, coord, ui); quit {
				return
			}
		}
	}
}

func handle(ctx context.Context, line string, coord *dashboard.Coordinator, ui *terminal) bool {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
	case ":quit", ":q":
		return true
	case ":help":
		ui.printf("%s", usage)
	case ":here":
		ui.visit()
		coord.UseCurrentLocation(ctx)
	case ":retry":
		coord.Retry()
	case ":default":
		ui.visit()
		coord.UseDefaultLocation()
	case ":suggest":
		ui.suggestions(dashboard.Suggest(arg))
	case ":units":
		ui.update(coord.State(), func(s *settings.Settings) {
			s.TemperatureUnit = settings.Celsius
			if strings.HasPrefix(strings.ToLower(arg), "f") {
				s.TemperatureUnit = settings.Fahrenheit
			}
		})
	case ":clock":
		ui.update(coord.State(), func(s *settings.Settings) { s.TimeFormat = arg })
	case ":reset":
		if err := ui.repo.Clear(); err != nil {
			ui.printf("could not reset settings: %v\n", err)
		}
	default:
		if strings.HasPrefix(cmd, ":") {
			ui.printf("%s", usage)
			return false
		}
		ui.visit()
		coord.SetLocation(line)
	}
	return false
}

func newOfflineTransport(ctx context.Context, cfg *config.ClientConfig) (http.RoundTripper, error) {
	log := logger.GetLogger()

	var storage offline.CacheStorage = offline.NewMemoryStorage()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		storage = offline.NewRedisStorage(client, offline.DefaultRedisPrefix)
	}

	reg := offline.NewRegistration(http.DefaultTransport)
	worker, err := offline.NewWorker(cfg.DashboardURL, storage, offline.WithVersion(cfg.OfflineCacheVersion))
	if err != nil {
		return nil, err
	}

	installCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := reg.Register(installCtx, worker); err != nil {
		// Without an installed worker requests simply go to the network.
		log.Warnw("offline cache unavailable", "error", err)
	}
	return reg, nil
}

func newSettingsRepository(path string) (*settings.Repository, error) {
	if path == "" {
		return settings.NewRepository(settings.NewMemoryStorage()), nil
	}
	st, err := settings.OpenFileStorage(path)
	if err != nil {
		return nil, err
	}
	return settings.NewRepository(st), nil
}

func newLocator(cfg *config.ClientConfig) (geolocation.Locator, error) {
	switch cfg.GeoProvider {
	case "":
		return nil, nil
	case "static":
		return geolocation.StaticLocator{Latitude: cfg.GeoLat, Longitude: cfg.GeoLon}, nil
	case "ip":
		return geolocation.NewIPLocator(&http.Client{Timeout: geolocation.DefaultOptions.Timeout}, cfg.GeoIPURL), nil
	case "denied":
		return geolocation.DeniedLocator{}, nil
	default:
		return nil, fmt.Errorf("unknown GEO_PROVIDER %q", cfg.GeoProvider)
	}
}

func waitIdle(ctx context.Context, coord *dashboard.Coordinator, settle time.Duration) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(30 * time.Second)
	// One debounce period first so pending input settles.
	time.Sleep(settle + 50*time.Millisecond)
	for coord.State().IsLoading {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
		}
	}
}
