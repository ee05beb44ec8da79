package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/skycast/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 REST root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements weather.WeatherProvider and weather.AirQualityProvider
// against OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: cfg,
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCurrentPayload struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility float64 `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Name string `json:"name"`
}

// CurrentByName fetches current conditions with q=<place>.
func (p *OpenWeatherProvider) CurrentByName(ctx context.Context, place string) (weather.CurrentConditions, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return weather.CurrentConditions{}, weather.ErrEmptyQuery
	}
	values := url.Values{}
	values.Set("q", place)
	return p.current(ctx, values)
}

// CurrentByCoordinates fetches current conditions with lat=&lon=; the response
// names the place at those coordinates.
func (p *OpenWeatherProvider) CurrentByCoordinates(ctx context.Context, coords weather.Coordinates) (weather.CurrentConditions, error) {
	if err := coords.Validate(); err != nil {
		return weather.CurrentConditions{}, err
	}
	values := url.Values{}
	setLatLon(values, coords)
	return p.current(ctx, values)
}

func (p *OpenWeatherProvider) current(ctx context.Context, values url.Values) (weather.CurrentConditions, error) {
	var payload owmCurrentPayload
	if err := p.get(ctx, "weather", values, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	if math.IsNaN(payload.Main.Temp) || math.IsInf(payload.Main.Temp, 0) {
		return weather.CurrentConditions{}, fmt.Errorf("%w: non-finite temperature", weather.ErrNetwork)
	}
	if payload.Main.Humidity < 0 || payload.Main.Humidity > 100 {
		return weather.CurrentConditions{}, fmt.Errorf("%w: humidity %v out of range", weather.ErrNetwork, payload.Main.Humidity)
	}

	var summary, description string
	if len(payload.Weather) > 0 {
		summary = payload.Weather[0].Main
		description = payload.Weather[0].Description
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	return weather.CurrentConditions{
		PlaceName:            payload.Name,
		Country:              payload.Sys.Country,
		TemperatureC:         payload.Main.Temp,
		FeelsLikeC:           payload.Main.FeelsLike,
		TempMaxC:             payload.Main.TempMax,
		TempMinC:             payload.Main.TempMin,
		HumidityPct:          payload.Main.Humidity,
		PressureHPa:          payload.Main.Pressure,
		VisibilityM:          payload.Visibility,
		WindSpeedMs:          payload.Wind.Speed,
		ConditionSummary:     summary,
		ConditionDescription: description,
		Condition:            weather.ClassifyCondition(summary),
		Coordinates: weather.Coordinates{
			Latitude:  payload.Coord.Lat,
			Longitude: payload.Coord.Lon,
		},
		ObservedAt: ts,
	}, nil
}

// Forecast returns the raw 3-hour series for place.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, place string) ([]weather.ForecastReading, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, weather.ErrEmptyQuery
	}

	values := url.Values{}
	values.Set("q", place)

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
			DtTxt string `json:"dt_txt"`
		} `json:"list"`
	}
	if err := p.get(ctx, "forecast", values, &payload); err != nil {
		return nil, err
	}

	readings := make([]weather.ForecastReading, 0, len(payload.List))
	for _, item := range payload.List {
		var desc string
		if len(item.Weather) > 0 {
			desc = item.Weather[0].Description
		}
		readings = append(readings, weather.ForecastReading{
			TimestampUnix:        item.Dt,
			DateText:             item.DtTxt,
			TemperatureC:         item.Main.Temp,
			ConditionDescription: desc,
		})
	}
	return readings, nil
}

// AirQuality returns the current air pollution index at coords.
func (p *OpenWeatherProvider) AirQuality(ctx context.Context, coords weather.Coordinates) (weather.AirQualityReading, error) {
	if err := coords.Validate(); err != nil {
		return weather.AirQualityReading{}, err
	}

	values := url.Values{}
	setLatLon(values, coords)

	var payload struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
		} `json:"list"`
	}
	if err := p.get(ctx, "air_pollution", values, &payload); err != nil {
		return weather.AirQualityReading{}, err
	}
	if len(payload.List) == 0 {
		return weather.AirQualityReading{}, fmt.Errorf("%w: empty air pollution list", weather.ErrNetwork)
	}

	aqi := payload.List[0].Main.AQI
	if _, err := weather.AQILabel(aqi); err != nil {
		return weather.AirQualityReading{}, fmt.Errorf("%w: %v", weather.ErrNetwork, err)
	}
	return weather.AirQualityReading{AQIIndex: aqi}, nil
}

func (p *OpenWeatherProvider) get(ctx context.Context, endpoint string, values url.Values, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: openweather api key is not configured", weather.ErrConfiguration)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		for k, v := range values {
			q[k] = v
		}
		q.Set("units", "metric")
		q.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, q.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, p.name, endpoint, buildRequest)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func setLatLon(values url.Values, c weather.Coordinates) {
	values.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
}
