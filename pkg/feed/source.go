package feed

import "context"

// ReferenceSource supplies the static station and platform catalogues used
// to hydrate the network.
type ReferenceSource interface {
	GetStations(ctx context.Context) (map[string]string, error)
	GetPlatforms(ctx context.Context) (map[string][]PlatformRecord, error)
}

// TimesSource supplies live arrival predictions for a single platform.
type TimesSource interface {
	GetTimes(ctx context.Context, stationCode string, platformCode string) ([]ArrivalRecord, error)
}
