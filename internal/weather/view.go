package weather

import (
	"fmt"
	"strconv"
	"time"
)

// dateLayout matches the dashboard's header date, e.g. "Mon Oct 19 2026".
const dateLayout = "Mon Jan 02 2006"

// ForecastRow is one rendered day of the forecast card.
type ForecastRow struct {
	Weekday       string    `json:"weekday"`
	Temperature   string    `json:"temperature"`
	Description   string    `json:"description"`
	Condition     Condition `json:"condition"`
	TimestampUnix int64     `json:"timestampUnix"`
}

// View is the rendering-ready projection of a PresentationState.
type View struct {
	Home               bool          `json:"home"`
	Loading            bool          `json:"loading"`
	PlaceName          string        `json:"placeName,omitempty"`
	Country            string        `json:"country,omitempty"`
	Date               string        `json:"date,omitempty"`
	Temperature        string        `json:"temperature,omitempty"`
	FeelsLike          string        `json:"feelsLike,omitempty"`
	High               string        `json:"high,omitempty"`
	Low                string        `json:"low,omitempty"`
	Description        string        `json:"description,omitempty"`
	Condition          Condition     `json:"condition,omitempty"`
	Humidity           string        `json:"humidity,omitempty"`
	Wind               string        `json:"wind,omitempty"`
	PressureHPa        float64       `json:"pressureHPa,omitempty"`
	VisibilityKm       float64       `json:"visibilityKm,omitempty"`
	AQILabel           string        `json:"aqiLabel,omitempty"`
	UVLabel            string        `json:"uvLabel,omitempty"`
	DistanceKm         *int          `json:"distanceKm,omitempty"`
	BackgroundImageURL string        `json:"backgroundImageUrl,omitempty"`
	Forecast           []ForecastRow `json:"forecast"`
}

// BuildView renders s, using now for the header date.
func BuildView(s PresentationState, now time.Time) View {
	v := View{
		Home:       s.Current == nil,
		Loading:    s.Loading,
		DistanceKm: s.DistanceKm,
		Forecast:   []ForecastRow{},
	}
	if s.Current == nil {
		return v
	}

	cur := s.Current
	zone := LocalZone(cur.Coordinates)

	v.PlaceName = cur.PlaceName
	v.Country = cur.Country
	v.Date = now.In(zone).Format(dateLayout)
	v.Temperature = FormatDegrees(cur.TemperatureC)
	v.FeelsLike = FormatDegrees(cur.FeelsLikeC)
	v.High = FormatDegrees(cur.TempMaxC)
	v.Low = FormatDegrees(cur.TempMinC)
	v.Description = cur.ConditionDescription
	v.Condition = cur.Condition
	v.Humidity = strconv.FormatFloat(cur.HumidityPct, 'f', -1, 64) + "%"
	v.Wind = fmt.Sprintf("%s m/s", strconv.FormatFloat(cur.WindSpeedMs, 'f', -1, 64))
	v.PressureHPa = cur.PressureHPa
	v.VisibilityKm = MetersToKm(cur.VisibilityM)
	v.BackgroundImageURL = s.BackgroundImageURL

	if s.AirQuality != nil {
		if label, err := AQILabel(s.AirQuality.AQIIndex); err == nil {
			v.AQILabel = label
			v.UVLabel = UVLabel(s.AirQuality.AQIIndex)
		}
	}

	for _, e := range s.Forecast {
		v.Forecast = append(v.Forecast, ForecastRow{
			Weekday:       time.Unix(e.TimestampUnix, 0).In(zone).Format("Mon"),
			Temperature:   FormatDegrees(e.TemperatureC),
			Description:   e.ConditionDescription,
			Condition:     ClassifyCondition(e.ConditionDescription),
			TimestampUnix: e.TimestampUnix,
		})
	}
	return v
}
