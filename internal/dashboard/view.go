package dashboard

import (
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Screen is the top level thing a consumer should render.
type Screen int

const (
	ScreenWelcome Screen = iota
	ScreenLoading
	ScreenError
	ScreenDashboard
	// ScreenEmpty is shown after the welcome screen before anything loaded.
	ScreenEmpty
)

func (s Screen) String() string {
	switch s {
	case ScreenWelcome:
		return "welcome"
	case ScreenLoading:
		return "loading"
	case ScreenError:
		return "error"
	case ScreenDashboard:
		return "dashboard"
	default:
		return "empty"
	}
}

// Action is a recovery offered on the error screen.
type Action string

const (
	ActionRetry           Action = "Try Again"
	ActionDefaultLocation Action = "Try Default Location"
)

const (
	ErrorTitle           = "Weather Data Unavailable"
	ErrorFallbackMessage = "We couldn't fetch the weather data. Please check your connection and try again."
)

// View describes what to render for a state.
type View struct {
	Screen Screen
	Title  string
	// Message is the error text, or a geolocation warning over the dashboard.
	Message string
	Actions []Action
	// Refreshing is set on the dashboard while a newer fetch is outstanding.
	Refreshing bool
}

// SelectView picks the screen for st. The welcome screen is shown until the
// user has searched once. Loading and errors only take over the screen while
// no data has loaded; otherwise the last snapshot stays up, marked as
// refreshing or carrying the error as message.
func SelectView(st State, showWelcome bool) View {
	switch {
	case showWelcome:
		return View{Screen: ScreenWelcome}
	case st.IsLoading && st.Data == nil:
		return View{Screen: ScreenLoading}
	case st.Error != "" && st.Data == nil:
		return View{
			Screen:  ScreenError,
			Title:   ErrorTitle,
			Message: st.Error,
			Actions: []Action{ActionRetry, ActionDefaultLocation},
		}
	case st.Data != nil:
		msg := st.Error
		if msg == "" {
			msg = st.LocationError
		}
		return View{Screen: ScreenDashboard, Message: msg, Refreshing: st.IsLoading}
	default:
		if st.LocationError != "" {
			return View{
				Screen:  ScreenError,
				Title:   ErrorTitle,
				Message: st.LocationError,
				Actions: []Action{ActionRetry, ActionDefaultLocation},
			}
		}
		return View{Screen: ScreenEmpty}
	}
}

// ErrorMessage returns the message for the error screen, never empty.
func (v View) ErrorMessage() string {
	if v.Message == "" {
		return ErrorFallbackMessage
	}
	return v.Message
}

// PanelSet lists the optional dashboard panels to render.
type PanelSet struct {
	AirQuality bool
	Alerts     bool
}

// Panels honours the user toggles and hides panels without data.
func Panels(s settings.Settings, snap *weather.Snapshot) PanelSet {
	if snap == nil {
		return PanelSet{}
	}
	return PanelSet{
		AirQuality: s.ShowAirQuality && snap.Current.AirQuality != nil,
		Alerts:     s.ShowAlerts && len(snap.ActiveAlerts()) > 0,
	}
}
