package weather

import "errors"

var (
	// ErrConfiguration is returned when a required setting such as an API key is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrCityNotFound is returned when the weather provider has no match for a place.
	ErrCityNotFound = errors.New("city not found")

	// ErrNetwork covers transport failures, unexpected statuses and undecodable payloads.
	ErrNetwork = errors.New("network error")

	// ErrPermissionDenied means the user refused to share their position.
	ErrPermissionDenied = errors.New("geolocation permission denied")

	// ErrLocationUnavailable means the position could not be determined.
	ErrLocationUnavailable = errors.New("geolocation unavailable")

	// ErrEmptyQuery is returned for a blank search; no request is issued.
	ErrEmptyQuery = errors.New("empty place query")

	// ErrInvalidCoordinates rejects a latitude or longitude outside its range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrInvalidAQI rejects an air quality index outside 1 to 5.
	ErrInvalidAQI = errors.New("air quality index out of range")

	// ErrSearchFailed is the single user-facing failure of the aggregation workflow.
	ErrSearchFailed = errors.New("place not found / check input")
)
