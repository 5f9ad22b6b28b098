package dashboard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestSelectView(t *testing.T) {
	snap := &weather.Snapshot{}

	tests := []struct {
		name        string
		state       State
		showWelcome bool
		want        Screen
	}{
		{"first visit", State{}, true, ScreenWelcome},
		{"nothing yet", State{}, false, ScreenEmpty},
		{"first load", State{IsLoading: true, Location: "Rome"}, false, ScreenLoading},
		{"refetch keeps data", State{IsLoading: true, Data: snap, Location: "Rome"}, false, ScreenDashboard},
		{"error without data", State{Error: "boom"}, false, ScreenError},
		{"error with data", State{Error: "boom", Data: snap}, false, ScreenDashboard},
		{"loaded", State{Data: snap}, false, ScreenDashboard},
		{"location failure only", State{LocationError: "denied"}, false, ScreenError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectView(tt.state, tt.showWelcome).Screen)
		})
	}
}

func TestRefetchKeepsSnapshotVisible(t *testing.T) {
	paris := &weather.Snapshot{Location: weather.Place{Name: "Paris"}}

	v := SelectView(State{Data: paris, IsLoading: true, Location: "Rome"}, false)
	assert.Equal(t, ScreenDashboard, v.Screen)
	assert.True(t, v.Refreshing)

	v = SelectView(State{Data: paris, Location: "Paris"}, false)
	assert.Equal(t, ScreenDashboard, v.Screen)
	assert.False(t, v.Refreshing)
}

func TestErrorViewOffersRecovery(t *testing.T) {
	v := SelectView(State{Error: "No matching location found."}, false)
	assert.Equal(t, ErrorTitle, v.Title)
	assert.Equal(t, "No matching location found.", v.ErrorMessage())
	assert.Equal(t, []Action{ActionRetry, ActionDefaultLocation}, v.Actions)

	assert.Equal(t, ErrorFallbackMessage, View{Screen: ScreenError}.ErrorMessage())
}

func TestDashboardViewCarriesWarnings(t *testing.T) {
	v := SelectView(State{Data: &weather.Snapshot{}, LocationError: "Unable to get your location. x"}, false)
	assert.Equal(t, ScreenDashboard, v.Screen)
	assert.Equal(t, "Unable to get your location. x", v.Message)
}

func TestPanels(t *testing.T) {
	with := &weather.Snapshot{
		Current: weather.Current{AirQuality: &weather.AirQuality{USEPAIndex: 2}},
		Alerts:  &weather.Alerts{Alert: []weather.Alert{{Headline: "Heat"}}},
	}
	without := &weather.Snapshot{}

	s := settings.Defaults()
	assert.Equal(t, PanelSet{AirQuality: true, Alerts: true}, Panels(s, with))
	assert.Equal(t, PanelSet{}, Panels(s, without))
	assert.Equal(t, PanelSet{}, Panels(s, nil))

	s.ShowAirQuality = false
	s.ShowAlerts = false
	assert.Equal(t, PanelSet{}, Panels(s, with))
}

func TestSuggest(t *testing.T) {
	assert.Nil(t, Suggest(""))
	assert.Nil(t, Suggest("   "))
	assert.Equal(t, []string{"Paris"}, Suggest("PAR"))
	assert.Equal(t, []string{"London", "Berlin", "Los Angeles", "Istanbul", "Seoul", "Lima"}, Suggest("l"))
	assert.Empty(t, Suggest("xyz"))
}

func TestSuggestLimitsToSix(t *testing.T) {
	got := Suggest("o")
	assert.Len(t, got, 6)
	assert.Equal(t, []string{"London", "New York", "Tokyo", "Toronto", "Singapore", "Los Angeles"}, got)
}

func iconMemoLen() int {
	n := 0
	iconMemo.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func TestIconFor(t *testing.T) {
	assert.Equal(t, "sun", IconFor(1000, true, 24).Name)
	assert.Equal(t, "moon", IconFor(1000, false, 24).Name)
	assert.Equal(t, "cloud", IconFor(1006, true, 24).Name)
	assert.Equal(t, "mist", IconFor(1135, false, 24).Name)
	assert.Equal(t, "rain", IconFor(1195, true, 24).Name)
	assert.Equal(t, "snow", IconFor(1225, true, 24).Name)
	assert.Equal(t, "thunderstorm", IconFor(1276, true, 24).Name)
	assert.Equal(t, "moon", IconFor(9999, false, 24).Name, "unknown codes fall back to clear sky")
	assert.Equal(t, defaultIconSize, IconFor(1000, true, 0).Size)
}

func TestIconForIsMemoized(t *testing.T) {
	IconFor(1009, true, 48)
	before := iconMemoLen()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IconFor(1009, true, 48)
		}()
	}
	wg.Wait()
	assert.Equal(t, before, iconMemoLen())

	IconFor(1009, true, 64)
	assert.Equal(t, before+1, iconMemoLen())
}
