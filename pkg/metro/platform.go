package metro

import (
	"context"
	"fmt"
	"sync"

	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"golang.org/x/exp/slices"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Platform is one boarding location at a station. Its arrivals list is a
// full snapshot of the latest successful fetch, never a merge.
type Platform struct {
	network *Network
	station *Station

	Code        string
	Description string
	Direction   string
	Coordinates *Coordinates

	mu       sync.RWMutex
	arrivals []*Train
}

func newPlatform(network *Network, station *Station, record feed.PlatformRecord) *Platform {
	platform := &Platform{
		network:     network,
		station:     station,
		Code:        record.Code(),
		Description: record.HelperText,
		Direction:   record.Direction,
	}

	if record.Coordinates != nil {
		platform.Coordinates = &Coordinates{
			Latitude:  record.Coordinates.Latitude,
			Longitude: record.Coordinates.Longitude,
		}
	}

	return platform
}

func (p *Platform) Station() *Station {
	return p.station
}

func (p *Platform) Key() PlatformKey {
	return PlatformKey{StationCode: p.station.Code, PlatformCode: p.Code}
}

// Update fetches the current predictions for this platform and replaces the
// arrivals list with them, ordered by due time. On error the previous list
// is left untouched.
func (p *Platform) Update(ctx context.Context) error {
	records, err := p.network.times.GetTimes(ctx, p.station.Code, p.Code)
	if err != nil {
		return fmt.Errorf("update %s: %w", p, err)
	}

	// A train listed twice keeps its soonest prediction.
	unique := make([]feed.ArrivalRecord, 0, len(records))
	positions := map[string]int{}
	for _, record := range records {
		if i, seen := positions[record.TRN]; seen {
			if record.DueIn < unique[i].DueIn {
				unique[i] = record
			}
			continue
		}
		positions[record.TRN] = len(unique)
		unique = append(unique, record)
	}

	type arrival struct {
		train *Train
		dueIn int
	}

	arrivals := make([]arrival, 0, len(unique))
	for _, record := range unique {
		train := p.network.RegisterOrUpdate(p.station.Code, p.Code, record)
		arrivals = append(arrivals, arrival{train: train, dueIn: record.DueIn})
	}

	slices.SortStableFunc(arrivals, func(a, b arrival) int {
		return a.dueIn - b.dueIn
	})

	trains := make([]*Train, 0, len(arrivals))
	for _, a := range arrivals {
		trains = append(trains, a.train)
	}

	p.mu.Lock()
	p.arrivals = trains
	p.mu.Unlock()

	return nil
}

func (p *Platform) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.arrivals = nil
}

// Arrivals returns a copy of the current arrivals list.
func (p *Platform) Arrivals() []*Train {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.arrivals)
}

func (p *Platform) String() string {
	return fmt.Sprintf("%s, Platform %s", p.station.Name, p.Code)
}
