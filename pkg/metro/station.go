package metro

import (
	"context"
	"strconv"

	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"golang.org/x/exp/slices"
)

type Station struct {
	network *Network

	Code string
	Name string

	platforms map[string]*Platform
	hydrated  bool
}

func newStation(network *Network, code string, name string) *Station {
	return &Station{
		network:   network,
		Code:      code,
		Name:      name,
		platforms: map[string]*Platform{},
	}
}

func (s *Station) hydrate(records []feed.PlatformRecord) {
	if s.hydrated {
		return
	}

	for _, record := range records {
		platform := newPlatform(s.network, s, record)
		s.platforms[platform.Code] = platform
	}

	s.hydrated = true
}

func (s *Station) GetPlatform(platformCode string) (*Platform, error) {
	platform, ok := s.platforms[platformCode]
	if !ok {
		return nil, &UnknownPlatformError{StationCode: s.Code, PlatformCode: platformCode}
	}

	return platform, nil
}

// Platforms lists the station's platforms ordered by platform number.
func (s *Station) Platforms() []*Platform {
	platforms := make([]*Platform, 0, len(s.platforms))
	for _, platform := range s.platforms {
		platforms = append(platforms, platform)
	}

	slices.SortFunc(platforms, func(a, b *Platform) int {
		return comparePlatformCodes(a.Code, b.Code)
	})

	return platforms
}

func (s *Station) Update(ctx context.Context, platformCode string) error {
	platform, err := s.GetPlatform(platformCode)
	if err != nil {
		return err
	}

	return platform.Update(ctx)
}

func (s *Station) Trains(platformCode string) ([]*Train, error) {
	platform, err := s.GetPlatform(platformCode)
	if err != nil {
		return nil, err
	}

	return platform.Arrivals(), nil
}

func comparePlatformCodes(a, b string) int {
	aNumber, aErr := strconv.Atoi(a)
	bNumber, bErr := strconv.Atoi(b)

	if aErr == nil && bErr == nil {
		return aNumber - bNumber
	}
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
