package dashboard

import (
	"sync"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Icon names a condition glyph at a given size.
type Icon struct {
	Name  string
	Glyph string
	Size  int
}

const defaultIconSize = 24

type iconKey struct {
	code  int
	isDay bool
	size  int
}

// The memo is never evicted; the key space is a few dozen codes.
var iconMemo sync.Map

// IconFor returns the icon for a condition code. Results are memoized per
// code, day flag and size.
func IconFor(code int, isDay bool, size int) Icon {
	if size <= 0 {
		size = defaultIconSize
	}
	key := iconKey{code: code, isDay: isDay, size: size}
	if v, ok := iconMemo.Load(key); ok {
		return v.(Icon)
	}
	v, _ := iconMemo.LoadOrStore(key, buildIcon(code, isDay, size))
	return v.(Icon)
}

func buildIcon(code int, isDay bool, size int) Icon {
	switch weather.ConditionFromCode(code) {
	case weather.ConditionCloudy:
		return Icon{Name: "cloud", Glyph: "☁", Size: size}
	case weather.ConditionMist:
		return Icon{Name: "mist", Glyph: "🌫", Size: size}
	case weather.ConditionRain:
		return Icon{Name: "rain", Glyph: "🌧", Size: size}
	case weather.ConditionSnow:
		return Icon{Name: "snow", Glyph: "❄", Size: size}
	case weather.ConditionStorm:
		return Icon{Name: "thunderstorm", Glyph: "⛈", Size: size}
	}
	if isDay {
		return Icon{Name: "sun", Glyph: "☀", Size: size}
	}
	return Icon{Name: "moon", Glyph: "☾", Size: size}
}
