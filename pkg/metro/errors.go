package metro

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStation  = errors.New("unknown station")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrNoPlatformRoute = errors.New("no platform route between stations")
)

// UnknownStationError is returned when a station lookup by code or name fails.
type UnknownStationError struct {
	Code string
	Name string
}

func (e *UnknownStationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no station called %q", e.Name)
	}
	return fmt.Sprintf("no station with code %q", e.Code)
}

func (e *UnknownStationError) Unwrap() error {
	return ErrUnknownStation
}

type UnknownPlatformError struct {
	StationCode  string
	PlatformCode string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("invalid platform %q for station %q", e.PlatformCode, e.StationCode)
}

func (e *UnknownPlatformError) Unwrap() error {
	return ErrUnknownPlatform
}
