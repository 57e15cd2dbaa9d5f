package metro

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// Observation is a single sighting of a train in the arrivals list of one
// platform.
type Observation struct {
	StationCode  string `json:"station"`
	PlatformCode string `json:"platform"`

	DueIn   int       `json:"due_in"`
	DueTime time.Time `json:"due_time"`
}

// ArrivalSnapshot is the flattened view of a train as seen from one platform.
type ArrivalSnapshot struct {
	TRN             string    `json:"trn"`
	Line            string    `json:"line"`
	DestinationName string    `json:"destination_name"`
	DestinationCode string    `json:"destination_code"`
	DueIn           int       `json:"due_in"`
	DueTime         time.Time `json:"due_time"`
}

// TrainStatus holds the network-wide fields of a train.
type TrainStatus struct {
	TRN             string `json:"trn"`
	Line            string `json:"line"`
	DestinationName string `json:"destination_name"`
	DestinationCode string `json:"destination_code"`

	LastEvent         string    `json:"last_event"`
	LastEventLocation string    `json:"last_event_location"`
	LastEventTime     time.Time `json:"last_event_time"`

	Position *PlatformKey `json:"position,omitempty"`

	Observations []Observation `json:"observations"`
}

// Train is one physical service, identified by its train running number.
// The same train is usually visible from several platforms at once so its
// due times are kept per platform rather than overwritten.
type Train struct {
	TRN string

	mu sync.RWMutex

	line            string
	destinationName string
	destinationCode string

	lastEvent         string
	lastEventLocation string
	lastEventTime     time.Time
	position          *PlatformKey

	observations map[PlatformKey]Observation
}

func newTrain(trn string) *Train {
	return &Train{
		TRN:          trn,
		observations: map[PlatformKey]Observation{},
	}
}

type trainUpdate struct {
	line            string
	destinationName string
	destinationCode string

	lastEvent         string
	lastEventLocation string
	lastEventTime     time.Time
	position          *PlatformKey

	observation Observation
}

func (t *Train) apply(update trainUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.line = update.line
	t.destinationName = update.destinationName
	t.destinationCode = update.destinationCode
	t.lastEvent = update.lastEvent
	t.lastEventLocation = update.lastEventLocation
	t.lastEventTime = update.lastEventTime
	t.position = update.position

	key := PlatformKey{StationCode: update.observation.StationCode, PlatformCode: update.observation.PlatformCode}
	t.observations[key] = update.observation
}

// ObservationAt returns the due data for this train at the given platform.
// The bool is false if the train has never been listed there.
func (t *Train) ObservationAt(stationCode string, platformCode string) (Observation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	observation, ok := t.observations[PlatformKey{StationCode: stationCode, PlatformCode: platformCode}]
	return observation, ok
}

func (t *Train) Snapshot(stationCode string, platformCode string) (ArrivalSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	observation, ok := t.observations[PlatformKey{StationCode: stationCode, PlatformCode: platformCode}]
	if !ok {
		return ArrivalSnapshot{}, false
	}

	return ArrivalSnapshot{
		TRN:             t.TRN,
		Line:            t.line,
		DestinationName: t.destinationName,
		DestinationCode: t.destinationCode,
		DueIn:           observation.DueIn,
		DueTime:         observation.DueTime,
	}, true
}

func (t *Train) Status() TrainStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]PlatformKey, 0, len(t.observations))
	for key := range t.observations {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, comparePlatformKeys)

	observations := make([]Observation, 0, len(keys))
	for _, key := range keys {
		observations = append(observations, t.observations[key])
	}

	var position *PlatformKey
	if t.position != nil {
		p := *t.position
		position = &p
	}

	return TrainStatus{
		TRN:               t.TRN,
		Line:              t.line,
		DestinationName:   t.destinationName,
		DestinationCode:   t.destinationCode,
		LastEvent:         t.lastEvent,
		LastEventLocation: t.lastEventLocation,
		LastEventTime:     t.lastEventTime,
		Position:          position,
		Observations:      observations,
	}
}
