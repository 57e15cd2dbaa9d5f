package coordinator

import (
	"fmt"
	"time"

	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
)

// UnknownValue is returned by the query methods when there is nothing to
// describe.
const UnknownValue = "Unknown"

type EntityState struct {
	Entity

	Description string                  `json:"description"`
	NextTrain   string                  `json:"next_train"`
	Trains      []metro.ArrivalSnapshot `json:"trains"`
	LastUpdate  *time.Time              `json:"last_update,omitempty"`
}

// NextTrain describes the first arrival at the platform.
func (c *Coordinator) NextTrain(stationCode string, platformCode string) string {
	description, ok := c.NextTrainDescription(stationCode, platformCode, 0)
	if !ok {
		return UnknownValue
	}

	return description
}

// NextTrainDescription describes the arrival at the given position in the
// platform's list. The bool is false when there is no such arrival.
func (c *Coordinator) NextTrainDescription(stationCode string, platformCode string, offset int) (string, bool) {
	if offset < 0 {
		return "", false
	}

	trains := c.Trains(stationCode, platformCode)
	if offset >= len(trains) {
		return "", false
	}

	return describeArrival(trains[offset]), true
}

// Trains lists the platform's arrivals in due order. Unknown platforms have
// no arrivals.
func (c *Coordinator) Trains(stationCode string, platformCode string) []metro.ArrivalSnapshot {
	trains, err := c.network.Trains(stationCode, platformCode)
	if err != nil {
		return []metro.ArrivalSnapshot{}
	}

	snapshots := make([]metro.ArrivalSnapshot, 0, len(trains))
	for _, train := range trains {
		if snapshot, ok := train.Snapshot(stationCode, platformCode); ok {
			snapshots = append(snapshots, snapshot)
		}
	}

	return snapshots
}

func (c *Coordinator) PlatformDescription(stationCode string, platformCode string) string {
	platform, err := c.network.GetPlatform(stationCode, platformCode)
	if err != nil || platform.Description == "" {
		return UnknownValue
	}

	return platform.Description
}

// Train returns the network-wide status of a train by running number.
func (c *Coordinator) Train(trn string) (metro.TrainStatus, bool) {
	train, ok := c.network.GetTrain(trn)
	if !ok {
		return metro.TrainStatus{}, false
	}

	return train.Status(), true
}

// EntityState is the current view of a tracked entity. Reading it counts as
// consumer interest in the entity's platform.
func (c *Coordinator) EntityState(entity Entity) EntityState {
	c.Touch(entity.StationCode, entity.PlatformCode)

	state := EntityState{
		Entity:      entity,
		Description: c.PlatformDescription(entity.StationCode, entity.PlatformCode),
		NextTrain:   c.NextTrain(entity.StationCode, entity.PlatformCode),
		Trains:      c.Trains(entity.StationCode, entity.PlatformCode),
	}

	if at, ok := c.LastRefreshedAt(entity.StationCode, entity.PlatformCode); ok {
		state.LastUpdate = &at
	}

	return state
}

func describeArrival(arrival metro.ArrivalSnapshot) string {
	destination := arrival.DestinationName
	if destination == "" {
		destination = UnknownValue
	}

	if arrival.DueIn <= 0 {
		return fmt.Sprintf("Due now to %s (Train %s)", destination, arrival.TRN)
	}

	return fmt.Sprintf("%d mins to %s (Train %s)", arrival.DueIn, destination, arrival.TRN)
}
