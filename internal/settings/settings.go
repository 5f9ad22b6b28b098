// Package settings persists the first-visit flag and the display preferences
// of the dashboard in a key/value store.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/logger"
)

// Storage keys.
const (
	KeyHasVisited = "aurora_has_visited"
	KeySettings   = "aurora_settings"
)

const (
	Celsius    = "celsius"
	Fahrenheit = "fahrenheit"

	Clock12h = "12h"
	Clock24h = "24h"

	ThemeDark   = "dark"
	ThemeLight  = "light"
	ThemeSystem = "system"
)

// Settings are the user display preferences.
type Settings struct {
	TemperatureUnit string `json:"temperatureUnit" validate:"oneof=celsius fahrenheit"`
	TimeFormat      string `json:"timeFormat" validate:"oneof=12h 24h"`
	Theme           string `json:"theme" validate:"oneof=dark light system"`
	ShowAirQuality  bool   `json:"showAirQuality"`
	ShowAlerts      bool   `json:"showAlerts"`
}

// Defaults returns the preferences used before anything was saved.
func Defaults() Settings {
	return Settings{
		TemperatureUnit: Celsius,
		TimeFormat:      Clock12h,
		Theme:           ThemeDark,
		ShowAirQuality:  true,
		ShowAlerts:      true,
	}
}

var validate = validator.New()

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Repository reads and writes settings through a Storage.
type Repository struct {
	storage Storage
	log     *zap.SugaredLogger
}

func NewRepository(storage Storage) *Repository {
	return &Repository{
		storage: storage,
		log:     logger.GetLogger().Named("settings"),
	}
}

// HasVisited reports whether MarkVisited was ever called.
func (r *Repository) HasVisited() bool {
	v, ok, err := r.storage.GetItem(KeyHasVisited)
	if err != nil {
		r.log.Warnw("could not read visited flag", "error", err)
		return false
	}
	return ok && v != ""
}

func (r *Repository) MarkVisited() error {
	return r.storage.SetItem(KeyHasVisited, "true")
}

// Load returns the saved settings. Missing, unreadable or invalid data
// yields Defaults; fields absent from the saved object keep their defaults.
func (r *Repository) Load() Settings {
	raw, ok, err := r.storage.GetItem(KeySettings)
	if err != nil {
		r.log.Warnw("could not read saved settings", "error", err)
		return Defaults()
	}
	if !ok {
		return Defaults()
	}

	s := Defaults()
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		r.log.Errorw("failed to parse saved settings", "error", err)
		return Defaults()
	}
	if err := s.Validate(); err != nil {
		r.log.Errorw("saved settings rejected", "error", err)
		return Defaults()
	}
	return s
}

// Save validates and stores s.
func (r *Repository) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.storage.SetItem(KeySettings, string(raw))
}

// Clear forgets both the visited flag and the settings.
func (r *Repository) Clear() error {
	if err := r.storage.RemoveItem(KeyHasVisited); err != nil {
		return err
	}
	return r.storage.RemoveItem(KeySettings)
}
