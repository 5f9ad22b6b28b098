package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const hoursShown = 6

// terminal draws coordinator state as plain text.
type terminal struct {
	mu          sync.Mutex
	out         io.Writer
	repo        *settings.Repository
	showWelcome bool
}

// visit leaves the welcome screen for good.
func (t *terminal) visit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.showWelcome {
		return
	}
	t.showWelcome = false
	if err := t.repo.MarkVisited(); err != nil {
		logger.GetLogger().Warnw("could not persist visited flag", "error", err)
	}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) update(st dashboard.State, change func(*settings.Settings)) {
	s := t.repo.Load()
	change(&s)
	if err := t.repo.Save(s); err != nil {
		t.printf("settings not saved: %v\n", err)
		return
	}
	t.render(st)
}

func (t *terminal) suggestions(cities []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(cities) == 0 {
		fmt.Fprintln(t.out, "no suggestions")
		return
	}
	fmt.Fprintln(t.out, strings.Join(cities, " · "))
}

func (t *terminal) render(st dashboard.State) {
	prefs := t.repo.Load()

	t.mu.Lock()
	defer t.mu.Unlock()
	writeView(t.out, dashboard.SelectView(st, t.showWelcome), st, prefs)
}

func writeView(w io.Writer, v dashboard.View, st dashboard.State, prefs settings.Settings) {
	switch v.Screen {
	case dashboard.ScreenWelcome:
		fmt.Fprintln(w, "Welcome to Aurora. Type a city, or :here to use your location. :help lists commands.")
	case dashboard.ScreenLoading:
		fmt.Fprintf(w, "Loading weather for %s...\n", st.Location)
	case dashboard.ScreenError:
		fmt.Fprintf(w, "%s\n  %s\n", v.Title, v.ErrorMessage())
		fmt.Fprintf(w, "  [:retry] %s   [:default] %s\n", dashboard.ActionRetry, dashboard.ActionDefaultLocation)
	case dashboard.ScreenDashboard:
		writeSnapshot(w, st.Data, prefs)
		if v.Refreshing {
			fmt.Fprintf(w, "  refreshing %s...\n", st.Location)
		}
		if v.Message != "" {
			fmt.Fprintf(w, "! %s\n", v.Message)
		}
	default:
		fmt.Fprintln(w, "Type a location to get started.")
	}
}

func writeSnapshot(w io.Writer, snap *weather.Snapshot, prefs settings.Settings) {
	cur := snap.Current
	icon := dashboard.IconFor(cur.Condition.Code, cur.IsDay == 1, 0)

	fmt.Fprintf(w, "%s  %s %s  %s\n", snap.Location.Label(), icon.Glyph,
		formatTemp(cur.TempC, cur.TempF, prefs.TemperatureUnit), cur.Condition.Text)
	fmt.Fprintf(w, "  feels like %s  humidity %d%%  wind %.0f km/h %s  UV %.0f\n",
		formatTemp(cur.FeelsLikeC, cur.FeelsLikeF, prefs.TemperatureUnit),
		cur.Humidity, cur.WindKph, cur.WindDir, cur.UV)

	panels := dashboard.Panels(prefs, snap)
	if panels.AirQuality {
		fmt.Fprintf(w, "  air quality: %s (US EPA %d)\n",
			weather.AirQualityCategory(cur.AirQuality.USEPAIndex), cur.AirQuality.USEPAIndex)
	}

	if len(snap.Forecast.Days) > 0 {
		var hours []string
		for i, h := range snap.Forecast.Days[0].Hours {
			if i >= hoursShown {
				break
			}
			hi := dashboard.IconFor(h.Condition.Code, h.IsDay == 1, 0)
			hours = append(hours, fmt.Sprintf("%s %s %s", formatHour(h.Time, prefs.TimeFormat), hi.Glyph,
				formatTemp(h.TempC, h.TempF, prefs.TemperatureUnit)))
		}
		if len(hours) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(hours, "  "))
		}
	}

	for _, d := range snap.Forecast.Days {
		di := dashboard.IconFor(d.Day.Condition.Code, true, 0)
		fmt.Fprintf(w, "  %s  %s %s / %s  rain %d%%\n", d.Date, di.Glyph,
			formatTemp(d.Day.MinTempC, d.Day.MinTempF, prefs.TemperatureUnit),
			formatTemp(d.Day.MaxTempC, d.Day.MaxTempF, prefs.TemperatureUnit),
			d.Day.DailyChanceOfRain)
	}

	if panels.Alerts {
		for _, a := range snap.ActiveAlerts() {
			fmt.Fprintf(w, "  ⚠ %s\n", a.Headline)
		}
	}
}

func formatTemp(c, f float64, unit string) string {
	if unit == settings.Fahrenheit {
		return fmt.Sprintf("%.0f°F", f)
	}
	return fmt.Sprintf("%.0f°C", c)
}

// formatHour renders a provider local time ("2006-01-02 15:04") as a clock.
func formatHour(local, format string) string {
	t, err := time.Parse("2006-01-02 15:04", local)
	if err != nil {
		return local
	}
	if format == settings.Clock24h {
		return t.Format("15:04")
	}
	return t.Format("3 PM")
}
