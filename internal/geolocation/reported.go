package geolocation

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/i474232898/skycast/internal/weather"
)

// Position error codes as reported by browsers.
const (
	codePermissionDenied    = 1
	codePositionUnavailable = 2
	codeTimeout             = 3
)

type reportedCoords struct {
	Latitude  *float64 `mapstructure:"latitude"`
	Longitude *float64 `mapstructure:"longitude"`
	Lat       *float64 `mapstructure:"lat"`
	Lon       *float64 `mapstructure:"lon"`
}

type reportedError struct {
	Code    int    `mapstructure:"code"`
	Message string `mapstructure:"message"`
}

type reportedPosition struct {
	Coords    *reportedCoords `mapstructure:"coords"`
	Error     *reportedError  `mapstructure:"error"`
	Latitude  *float64        `mapstructure:"latitude"`
	Longitude *float64        `mapstructure:"longitude"`
	Lat       *float64        `mapstructure:"lat"`
	Lon       *float64        `mapstructure:"lon"`
}

// DecodeReportedPosition reads a position posted by a client. It accepts a
// browser GeolocationPosition ({"coords":{"latitude":..,"longitude":..}}),
// a flat {"latitude":..,"longitude":..} or {"lat":..,"lon":..} object, and a
// GeolocationPositionError ({"error":{"code":1}}).
func DecodeReportedPosition(raw map[string]any) (weather.Coordinates, error) {
	var pos reportedPosition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &pos,
	})
	if err != nil {
		return weather.Coordinates{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrInvalidCoordinates, err)
	}

	if pos.Error != nil {
		switch pos.Error.Code {
		case codePermissionDenied:
			return weather.Coordinates{}, fmt.Errorf("%w: %s", weather.ErrPermissionDenied, pos.Error.Message)
		case codePositionUnavailable, codeTimeout:
			return weather.Coordinates{}, fmt.Errorf("%w: code %d: %s", weather.ErrLocationUnavailable, pos.Error.Code, pos.Error.Message)
		default:
			return weather.Coordinates{}, fmt.Errorf("%w: code %d", weather.ErrLocationUnavailable, pos.Error.Code)
		}
	}

	rc := reportedCoords{Latitude: pos.Latitude, Longitude: pos.Longitude, Lat: pos.Lat, Lon: pos.Lon}
	if pos.Coords != nil {
		rc = *pos.Coords
	}
	lat, lon := rc.Latitude, rc.Longitude
	if lat == nil || lon == nil {
		lat, lon = rc.Lat, rc.Lon
	}
	if lat == nil || lon == nil {
		return weather.Coordinates{}, fmt.Errorf("%w: latitude and longitude are required", weather.ErrInvalidCoordinates)
	}

	c := weather.Coordinates{Latitude: *lat, Longitude: *lon}
	if err := c.Validate(); err != nil {
		return weather.Coordinates{}, err
	}
	return c, nil
}
