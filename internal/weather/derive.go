package weather

import (
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/zsefvlol/timezonemapper"

	"github.com/i474232898/skycast/internal/common"
)

const (
	earthRadiusKm = 6371.0

	// noonSuffix marks the forecast reading kept for each day.
	noonSuffix = "12:00:00"

	// MaxForecastDays bounds the forecast series to the provider's horizon.
	MaxForecastDays = 5

	labelGood     = "Good"
	labelModerate = "Moderate"
	labelHigh     = "High"
	labelLow      = "Low"
)

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// DistanceKm is HaversineKm rounded to the nearest whole kilometre.
func DistanceKm(a, b Coordinates) int {
	return RoundHalfUp(HaversineKm(a, b))
}

// AQILabel maps the provider's 1-5 index onto the dashboard's two-step scale.
// The banding is coarse on purpose and does not follow any official AQI scale.
func AQILabel(index int) (string, error) {
	if index < 1 || index > 5 {
		return "", fmt.Errorf("%w: %d", ErrInvalidAQI, index)
	}
	if index <= 2 {
		return labelGood, nil
	}
	return labelModerate, nil
}

// UVLabel derives the UV badge from the air quality index.
// TODO: replace with a real UV index once the product owner confirms the data source.
func UVLabel(aqiIndex int) string {
	if aqiIndex > 2 {
		return labelHigh
	}
	return labelLow
}

// RoundHalfUp rounds to the nearest integer with halves going up (-2.5 -> -2).
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// FormatDegrees renders a temperature the way the dashboard displays it, e.g. "28°".
func FormatDegrees(c float64) string {
	return fmt.Sprintf("%d°", RoundHalfUp(c))
}

// MetersToKm converts metres to kilometres, rounded to one decimal place.
func MetersToKm(m float64) float64 {
	return math.Round(m/100) / 10
}

// SelectDailyForecast keeps the noon reading of each day.
// Days without a noon reading are left out; nothing is interpolated.
func SelectDailyForecast(readings []ForecastReading) ForecastSeries {
	out := make(ForecastSeries, 0, MaxForecastDays)
	seenDays := make(map[string]struct{})
	var lastTS int64

	for _, r := range readings {
		if len(out) >= MaxForecastDays {
			break
		}
		text := strings.TrimSpace(r.DateText)
		if !strings.HasSuffix(text, noonSuffix) {
			continue
		}
		day, _, _ := strings.Cut(text, " ")
		if _, dup := seenDays[day]; dup {
			continue
		}
		if len(out) > 0 && r.TimestampUnix <= lastTS {
			continue
		}

		seenDays[day] = struct{}{}
		lastTS = r.TimestampUnix
		out = append(out, ForecastEntry{
			TimestampUnix:        r.TimestampUnix,
			TemperatureC:         r.TemperatureC,
			ConditionDescription: r.ConditionDescription,
			DateText:             text,
		})
	}
	return out
}

// LocalZone returns the time zone covering coords, or UTC when it cannot be determined.
func LocalZone(coords Coordinates) *time.Location {
	name := timezonemapper.LatLngToTimezoneString(coords.Latitude, coords.Longitude)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClassifyCondition normalizes provider condition text such as "Clouds" or "light rain".
func ClassifyCondition(text string) Condition {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return ConditionStorm
	case common.HasAny(t, "rain", "drizzle", "shower"):
		return ConditionRain
	case common.HasAny(t, "snow", "sleet"):
		return ConditionSnow
	case common.HasAny(t, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(t, "clear", "sunny"):
		return ConditionClear
	case common.HasAny(t, "mist", "fog", "haze", "smoke"):
		return ConditionMist
	default:
		return ConditionUnknown
	}
}
