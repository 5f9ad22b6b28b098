package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// LocationQuery is either a free-text place name or a "lat,lon" pair.
type LocationQuery string

// DefaultLocation is used whenever no other location is available.
const DefaultLocation LocationQuery = "London"

// DefaultForecastDays is the day count requested when the caller gives none.
const DefaultForecastDays = 3

// NormalizeQuery trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. A blank input yields an empty query.
func NormalizeQuery(s string) LocationQuery {
	return LocationQuery(strings.Join(strings.Fields(s), " "))
}

// CoordinatesQuery formats a coordinate pair the way the upstream expects it.
func CoordinatesQuery(lat, lon float64) LocationQuery {
	return LocationQuery(strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64))
}

// IsEmpty reports whether the query carries no usable text.
func (q LocationQuery) IsEmpty() bool {
	return strings.TrimSpace(string(q)) == ""
}

// Coordinates parses a "lat,lon" query. ok is false for free-text queries.
func (q LocationQuery) Coordinates() (lat, lon float64, ok bool) {
	parts := strings.Split(string(q), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func (q LocationQuery) String() string {
	return string(q)
}

// Snapshot is the parsed forecast payload of the upstream provider.
// It is replaced wholesale on every fetch.
type Snapshot struct {
	Location Place    `json:"location"`
	Current  Current  `json:"current"`
	Forecast Forecast `json:"forecast"`
	Alerts   *Alerts  `json:"alerts,omitempty"`
}

// Place describes the resolved location of a forecast.
type Place struct {
	Name           string  `json:"name"`
	Region         string  `json:"region"`
	Country        string  `json:"country"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	TzID           string  `json:"tz_id"`
	LocaltimeEpoch int64   `json:"localtime_epoch"`
	Localtime      string  `json:"localtime"`
}

// Label returns "Name, Country" or just the name when no country is known.
func (p Place) Label() string {
	if p.Country == "" {
		return p.Name
	}
	return fmt.Sprintf("%s, %s", p.Name, p.Country)
}

// ConditionInfo is the provider's textual and coded description of the sky.
type ConditionInfo struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// Current holds the current conditions.
type Current struct {
	LastUpdatedEpoch int64         `json:"last_updated_epoch"`
	LastUpdated      string        `json:"last_updated"`
	TempC            float64       `json:"temp_c"`
	TempF            float64       `json:"temp_f"`
	IsDay            int           `json:"is_day"`
	Condition        ConditionInfo `json:"condition"`
	WindKph          float64       `json:"wind_kph"`
	WindMph          float64       `json:"wind_mph"`
	WindDegree       int           `json:"wind_degree"`
	WindDir          string        `json:"wind_dir"`
	PressureMb       float64       `json:"pressure_mb"`
	PrecipMm         float64       `json:"precip_mm"`
	Humidity         int           `json:"humidity"`
	Cloud            int           `json:"cloud"`
	FeelsLikeC       float64       `json:"feelslike_c"`
	FeelsLikeF       float64       `json:"feelslike_f"`
	VisKm            float64       `json:"vis_km"`
	UV               float64       `json:"uv"`
	GustKph          float64       `json:"gust_kph"`
	AirQuality       *AirQuality   `json:"air_quality,omitempty"`
}

// AirQuality holds pollutant concentrations and indices.
type AirQuality struct {
	CO           float64 `json:"co"`
	NO2          float64 `json:"no2"`
	O3           float64 `json:"o3"`
	SO2          float64 `json:"so2"`
	PM25         float64 `json:"pm2_5"`
	PM10         float64 `json:"pm10"`
	USEPAIndex   int     `json:"us-epa-index"`
	GBDefraIndex int     `json:"gb-defra-index"`
}

// Forecast wraps the per-day entries, ordered by date ascending.
type Forecast struct {
	Days []ForecastDay `json:"forecastday"`
}

// ForecastDay is a single day of forecast with its hourly breakdown.
type ForecastDay struct {
	Date      string     `json:"date"`
	DateEpoch int64      `json:"date_epoch"`
	Day       DaySummary `json:"day"`
	Astro     Astro      `json:"astro"`
	Hours     []Hour     `json:"hour"`
}

// DaySummary aggregates a single forecast day.
type DaySummary struct {
	MaxTempC          float64       `json:"maxtemp_c"`
	MaxTempF          float64       `json:"maxtemp_f"`
	MinTempC          float64       `json:"mintemp_c"`
	MinTempF          float64       `json:"mintemp_f"`
	AvgTempC          float64       `json:"avgtemp_c"`
	MaxWindKph        float64       `json:"maxwind_kph"`
	TotalPrecipMm     float64       `json:"totalprecip_mm"`
	AvgHumidity       float64       `json:"avghumidity"`
	DailyChanceOfRain int           `json:"daily_chance_of_rain"`
	DailyChanceOfSnow int           `json:"daily_chance_of_snow"`
	Condition         ConditionInfo `json:"condition"`
	UV                float64       `json:"uv"`
}

// Astro holds sun and moon times for a day, as local clock strings.
type Astro struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	Moonrise  string `json:"moonrise"`
	Moonset   string `json:"moonset"`
	MoonPhase string `json:"moon_phase"`
}

// Hour is a single hourly forecast entry.
type Hour struct {
	TimeEpoch    int64         `json:"time_epoch"`
	Time         string        `json:"time"`
	TempC        float64       `json:"temp_c"`
	TempF        float64       `json:"temp_f"`
	IsDay        int           `json:"is_day"`
	Condition    ConditionInfo `json:"condition"`
	WindKph      float64       `json:"wind_kph"`
	PrecipMm     float64       `json:"precip_mm"`
	Humidity     int           `json:"humidity"`
	ChanceOfRain int           `json:"chance_of_rain"`
	ChanceOfSnow int           `json:"chance_of_snow"`
	FeelsLikeC   float64       `json:"feelslike_c"`
	FeelsLikeF   float64       `json:"feelslike_f"`
}

// Alerts is the optional list of active weather alerts.
type Alerts struct {
	Alert []Alert `json:"alert"`
}

// Alert is a single government-issued weather alert.
type Alert struct {
	Headline    string `json:"headline"`
	MsgType     string `json:"msgtype"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Areas       string `json:"areas"`
	Category    string `json:"category"`
	Certainty   string `json:"certainty"`
	Event       string `json:"event"`
	Note        string `json:"note"`
	Effective   string `json:"effective"`
	Expires     string `json:"expires"`
	Desc        string `json:"desc"`
	Instruction string `json:"instruction"`
}

// ActiveAlerts returns the alerts of the snapshot, or nil when none were sent.
func (s *Snapshot) ActiveAlerts() []Alert {
	if s == nil || s.Alerts == nil {
		return nil
	}
	return s.Alerts.Alert
}
