package weather

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate checks that both components are finite and within range.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 ||
		c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// PlaceQuery is either a place name or a coordinate pair; exactly one is set.
type PlaceQuery struct {
	Name        string       `json:"name,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// NewNameQuery builds a name query from raw user input.
func NewNameQuery(name string) PlaceQuery {
	return PlaceQuery{Name: strings.TrimSpace(name)}
}

// NewCoordinatesQuery builds a query for a coordinate pair.
func NewCoordinatesQuery(c Coordinates) PlaceQuery {
	return PlaceQuery{Coordinates: &c}
}

// IsEmpty reports whether the query carries nothing to search for.
func (q PlaceQuery) IsEmpty() bool {
	return q.Coordinates == nil && strings.TrimSpace(q.Name) == ""
}

func (q PlaceQuery) String() string {
	if q.Coordinates != nil {
		return q.Coordinates.String()
	}
	return strings.TrimSpace(q.Name)
}

// CurrentConditions is a single current-weather observation for a place.
type CurrentConditions struct {
	PlaceName            string      `json:"placeName"`
	Country              string      `json:"country,omitempty"`
	TemperatureC         float64     `json:"temperatureC"`
	FeelsLikeC           float64     `json:"feelsLikeC"`
	TempMaxC             float64     `json:"tempMaxC"`
	TempMinC             float64     `json:"tempMinC"`
	HumidityPct          float64     `json:"humidityPct"`
	PressureHPa          float64     `json:"pressureHPa"`
	VisibilityM          float64     `json:"visibilityM"`
	WindSpeedMs          float64     `json:"windSpeedMs"`
	ConditionSummary     string      `json:"conditionSummary"`
	ConditionDescription string      `json:"conditionDescription"`
	Condition            Condition   `json:"condition"`
	Coordinates          Coordinates `json:"coordinates"`
	ObservedAt           time.Time   `json:"observedAt"` // always UTC
}

// ForecastEntry is the representative reading chosen for one calendar day.
type ForecastEntry struct {
	TimestampUnix        int64   `json:"timestampUnix"`
	TemperatureC         float64 `json:"temperatureC"`
	ConditionDescription string  `json:"conditionDescription"`
	// DateText is the provider's own "YYYY-MM-DD hh:mm:ss" label.
	DateText string `json:"dateText,omitempty"`
}

// ForecastSeries holds at most one entry per day, ordered by timestamp ascending.
type ForecastSeries []ForecastEntry

// AirQualityReading is the provider's 1-5 air quality index.
type AirQualityReading struct {
	AQIIndex int `json:"aqiIndex"`
}

// Snapshot is the result of one successful aggregation, before it is
// folded into a PresentationState.
type Snapshot struct {
	Query              string             `json:"query"`
	Current            CurrentConditions  `json:"current"`
	Forecast           ForecastSeries     `json:"forecast"`
	AirQuality         *AirQualityReading `json:"airQuality,omitempty"`
	BackgroundImageURL string             `json:"backgroundImageUrl,omitempty"`
	FetchedAt          time.Time          `json:"fetchedAt"`
}

// PresentationState is everything the dashboard renders for one session.
type PresentationState struct {
	Query              string             `json:"query"`
	Current            *CurrentConditions `json:"current,omitempty"`
	Forecast           ForecastSeries     `json:"forecast"`
	AirQuality         *AirQualityReading `json:"airQuality,omitempty"`
	BackgroundImageURL string             `json:"backgroundImageUrl,omitempty"`
	DistanceKm         *int               `json:"distanceKm,omitempty"`
	UserCoordinates    *Coordinates       `json:"userCoordinates,omitempty"`
	Loading            bool               `json:"loading"`
	UpdatedAt          time.Time          `json:"updatedAt,omitempty"`
}

// HasPlace reports whether a place is currently shown.
func (s PresentationState) HasPlace() bool {
	return s.Current != nil
}

func (s PresentationState) clone() PresentationState {
	out := s
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	if s.AirQuality != nil {
		aq := *s.AirQuality
		out.AirQuality = &aq
	}
	if s.DistanceKm != nil {
		d := *s.DistanceKm
		out.DistanceKm = &d
	}
	if s.UserCoordinates != nil {
		c := *s.UserCoordinates
		out.UserCoordinates = &c
	}
	out.Forecast = append(ForecastSeries(nil), s.Forecast...)
	return out
}
