package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
)

// TrackedPlatform is one configured (station, platform, destination) triple.
// Station and Destination accept either a code or a station name. When
// Platform is empty it is worked out from the destination.
type TrackedPlatform struct {
	Name        string `yaml:"name"`
	Station     string `yaml:"station"`
	Platform    string `yaml:"platform"`
	Destination string `yaml:"destination"`
}

// Entity is a tracked platform resolved against the network.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	StationCode     string `json:"station"`
	PlatformCode    string `json:"platform"`
	DestinationCode string `json:"destination,omitempty"`
}

func ResolveEntities(network *metro.Network, tracked []TrackedPlatform) ([]Entity, error) {
	entities := make([]Entity, 0, len(tracked))
	seen := map[string]bool{}

	for _, t := range tracked {
		entity, err := resolveEntity(network, t)
		if err != nil {
			return nil, fmt.Errorf("tracked platform %q: %w", t.Station, err)
		}

		if seen[entity.ID] {
			return nil, fmt.Errorf("tracked platform %q: duplicate entity %s", t.Station, entity.ID)
		}
		seen[entity.ID] = true

		entities = append(entities, entity)
	}

	return entities, nil
}

func resolveEntity(network *metro.Network, tracked TrackedPlatform) (Entity, error) {
	station, err := lookupStation(network, tracked.Station)
	if err != nil {
		return Entity{}, err
	}

	entity := Entity{
		StationCode:  station.Code,
		PlatformCode: tracked.Platform,
	}

	var destination *metro.Station
	if tracked.Destination != "" {
		if destination, err = lookupStation(network, tracked.Destination); err != nil {
			return Entity{}, err
		}
		entity.DestinationCode = destination.Code
	}

	if entity.PlatformCode == "" {
		if destination == nil {
			return Entity{}, errors.New("either platform or destination is required")
		}
		if entity.PlatformCode, err = network.WhichPlatform(station.Code, destination.Code); err != nil {
			return Entity{}, err
		}
	}

	if _, err := station.GetPlatform(entity.PlatformCode); err != nil {
		return Entity{}, err
	}

	entity.ID = strings.ToLower(fmt.Sprintf("%s_%s", entity.StationCode, entity.PlatformCode))
	if destination != nil {
		entity.ID = fmt.Sprintf("%s_%s", entity.ID, strings.ToLower(destination.Code))
	}

	entity.Name = tracked.Name
	if entity.Name == "" {
		entity.Name = fmt.Sprintf("%s platform %s", station.Name, entity.PlatformCode)
	}

	return entity, nil
}

func lookupStation(network *metro.Network, codeOrName string) (*metro.Station, error) {
	if station, err := network.GetStationByCode(strings.ToUpper(codeOrName)); err == nil {
		return station, nil
	}

	return network.GetStationByName(codeOrName)
}

func (c *Coordinator) Entities() []Entity {
	entities := make([]Entity, len(c.entities))
	copy(entities, c.entities)

	return entities
}

func (c *Coordinator) Entity(id string) (Entity, bool) {
	for _, entity := range c.entities {
		if entity.ID == id {
			return entity, true
		}
	}

	return Entity{}, false
}
