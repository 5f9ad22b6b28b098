package weather

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionClear  Condition = "clear"
	ConditionCloudy Condition = "cloudy"
	ConditionRain   Condition = "rain"
	ConditionSnow   Condition = "snow"
	ConditionStorm  Condition = "storm"
	ConditionMist   Condition = "mist"
)

var (
	cloudyCodes = codeSet(1003, 1006, 1009)
	mistCodes   = codeSet(1030, 1135, 1147)
	rainCodes   = codeSet(1063, 1180, 1183, 1186, 1189, 1192, 1195, 1240, 1243, 1246)
	snowCodes   = codeSet(1066, 1114, 1117, 1210, 1213, 1216, 1219, 1222, 1225, 1255, 1258)
	stormCodes  = codeSet(1087, 1273, 1276, 1279, 1282)
)

func codeSet(codes ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

func in(set map[int]struct{}, code int) bool {
	_, ok := set[code]
	return ok
}

// ConditionFromCode maps a WeatherAPI.com condition code to a Condition.
// Unknown codes are treated as clear sky.
func ConditionFromCode(code int) Condition {
	switch {
	case code == 1000:
		return ConditionClear
	case in(cloudyCodes, code):
		return ConditionCloudy
	case in(mistCodes, code):
		return ConditionMist
	case in(rainCodes, code):
		return ConditionRain
	case in(snowCodes, code):
		return ConditionSnow
	case in(stormCodes, code):
		return ConditionStorm
	default:
		return ConditionClear
	}
}

// AirQualityCategory labels a US EPA index (1 = good .. 6 = hazardous).
func AirQualityCategory(index int) string {
	switch index {
	case 1:
		return "Good"
	case 2:
		return "Moderate"
	case 3:
		return "Unhealthy for Sensitive Groups"
	case 4:
		return "Unhealthy"
	case 5:
		return "Very Unhealthy"
	case 6:
		return "Hazardous"
	default:
		return "Unknown"
	}
}
