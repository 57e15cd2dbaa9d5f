package metro

import (
	"cmp"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"golang.org/x/exp/slices"
)

// Names used by the live feed that differ from the reference data.
var stationNameAliases = map[string]string{
	"Monument":  "MTS",
	"St. James": "SJM",
}

// Network owns every station, the train registry and the subscriptions of a
// single metro system.
type Network struct {
	times feed.TimesSource

	hydrateMu sync.Mutex
	hydrated  bool

	mu         sync.RWMutex
	stations   map[string]*Station
	nameToCode map[string]string

	trainsMu sync.RWMutex
	trains   map[string]*Train

	subscriptionsMu sync.Mutex
	subscriptions   map[PlatformKey]time.Time
}

func NewNetwork(times feed.TimesSource) *Network {
	return &Network{
		times:         times,
		stations:      map[string]*Station{},
		nameToCode:    map[string]string{},
		trains:        map[string]*Train{},
		subscriptions: map[PlatformKey]time.Time{},
	}
}

// Hydrate builds the stations and platforms from the reference catalogues.
// It only does any work the first time it succeeds.
func (n *Network) Hydrate(ctx context.Context, reference feed.ReferenceSource) error {
	n.hydrateMu.Lock()
	defer n.hydrateMu.Unlock()

	if n.hydrated {
		return nil
	}

	platformData, err := reference.GetPlatforms(ctx)
	if err != nil {
		return fmt.Errorf("hydrate platforms: %w", err)
	}
	stationData, err := reference.GetStations(ctx)
	if err != nil {
		return fmt.Errorf("hydrate stations: %w", err)
	}

	stations := make(map[string]*Station, len(stationData))
	nameToCode := make(map[string]string, len(stationData)+len(stationNameAliases))

	for code, name := range stationData {
		station := newStation(n, code, name)
		station.hydrate(platformData[code])

		if len(station.platforms) == 0 {
			log.Debug().Str("station", code).Msg("Station has no platforms in reference data")
		}

		stations[code] = station
		nameToCode[name] = code
	}
	for name, code := range stationNameAliases {
		if _, exists := stations[code]; exists {
			nameToCode[name] = code
		}
	}

	n.mu.Lock()
	n.stations = stations
	n.nameToCode = nameToCode
	n.mu.Unlock()

	n.hydrated = true

	log.Info().Int("stations", len(stations)).Msg("Hydrated metro network")

	return nil
}

func (n *Network) Hydrated() bool {
	n.hydrateMu.Lock()
	defer n.hydrateMu.Unlock()

	return n.hydrated
}

func (n *Network) GetStationByCode(stationCode string) (*Station, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	station, ok := n.stations[stationCode]
	if !ok {
		return nil, &UnknownStationError{Code: stationCode}
	}

	return station, nil
}

func (n *Network) GetStationByName(stationName string) (*Station, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if code, ok := n.nameToCode[stationName]; ok {
		if station, ok := n.stations[code]; ok {
			return station, nil
		}
	}

	return nil, &UnknownStationError{Name: stationName}
}

func (n *Network) GetPlatform(stationCode string, platformCode string) (*Platform, error) {
	station, err := n.GetStationByCode(stationCode)
	if err != nil {
		return nil, err
	}

	return station.GetPlatform(platformCode)
}

// Stations lists every station ordered by name.
func (n *Network) Stations() []*Station {
	n.mu.RLock()
	stations := make([]*Station, 0, len(n.stations))
	for _, station := range n.stations {
		stations = append(stations, station)
	}
	n.mu.RUnlock()

	slices.SortFunc(stations, func(a, b *Station) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return stations
}

// Platforms lists every platform on the network ordered by station code and
// platform number.
func (n *Network) Platforms() []*Platform {
	n.mu.RLock()
	var platforms []*Platform
	for _, station := range n.stations {
		platforms = append(platforms, station.Platforms()...)
	}
	n.mu.RUnlock()

	slices.SortFunc(platforms, func(a, b *Platform) int {
		if c := cmp.Compare(a.station.Code, b.station.Code); c != 0 {
			return c
		}
		return comparePlatformCodes(a.Code, b.Code)
	})

	return platforms
}

func (n *Network) Update(ctx context.Context, stationCode string, platformCode string) error {
	station, err := n.GetStationByCode(stationCode)
	if err != nil {
		return err
	}

	return station.Update(ctx, platformCode)
}

func (n *Network) Trains(stationCode string, platformCode string) ([]*Train, error) {
	station, err := n.GetStationByCode(stationCode)
	if err != nil {
		return nil, err
	}

	return station.Trains(platformCode)
}

func (n *Network) GetTrain(trn string) (*Train, bool) {
	n.trainsMu.RLock()
	defer n.trainsMu.RUnlock()

	train, ok := n.trains[trn]
	return train, ok
}

// RegisterOrUpdate folds one arrival record seen at the given platform into
// the train registry and returns the train it belongs to.
func (n *Network) RegisterOrUpdate(stationCode string, platformCode string, record feed.ArrivalRecord) *Train {
	update := trainUpdate{
		line:              record.Line,
		destinationName:   record.Destination,
		lastEvent:         record.LastEvent,
		lastEventLocation: record.LastEventLocation,
		observation: Observation{
			StationCode:  stationCode,
			PlatformCode: platformCode,
			DueIn:        record.DueIn,
		},
	}

	if dueTime, err := record.ParsedPredictedTime(); err == nil {
		update.observation.DueTime = dueTime
	} else {
		log.Debug().Err(err).Str("trn", record.TRN).Msg("Failed to parse actualPredictedTime")
	}
	if lastEventTime, err := record.ParsedLastEventTime(); err == nil {
		update.lastEventTime = lastEventTime
	} else {
		log.Debug().Err(err).Str("trn", record.TRN).Msg("Failed to parse lastEventTime")
	}

	n.mu.RLock()
	if code, ok := n.nameToCode[record.Destination]; ok {
		if station, ok := n.stations[code]; ok {
			update.destinationName = station.Name
			update.destinationCode = station.Code
		}
	}
	update.position, _ = n.resolveEventLocation(record.LastEventLocation)
	n.mu.RUnlock()

	if update.destinationCode == "" {
		log.Debug().Str("trn", record.TRN).Str("destination", record.Destination).Msg("Unknown train destination")
	}

	n.trainsMu.Lock()
	train, ok := n.trains[record.TRN]
	if !ok {
		train = newTrain(record.TRN)
		n.trains[record.TRN] = train
	}
	n.trainsMu.Unlock()

	train.apply(update)

	return train
}

// WhichPlatform is the validated form of the package level WhichPlatform.
func (n *Network) WhichPlatform(fromCode string, toCode string) (string, error) {
	if _, err := n.GetStationByCode(fromCode); err != nil {
		return "", err
	}
	if _, err := n.GetStationByCode(toCode); err != nil {
		return "", err
	}

	return WhichPlatform(fromCode, toCode)
}
