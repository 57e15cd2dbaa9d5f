package feed

import (
	"strconv"
	"time"
	_ "time/tzdata"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PlatformRecord is a single entry of the stations/platforms reference data.
type PlatformRecord struct {
	PlatformNumber int          `json:"platformNumber"`
	Direction      string       `json:"direction,omitempty"`
	HelperText     string       `json:"helperText"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
}

func (p PlatformRecord) Code() string {
	return strconv.Itoa(p.PlatformNumber)
}

// ArrivalRecord is one prediction returned by times/{station}/{platform}.
type ArrivalRecord struct {
	TRN         string `json:"trn"`
	Line        string `json:"line"`
	Destination string `json:"destination"`

	DueIn               int    `json:"dueIn"`
	ActualPredictedTime string `json:"actualPredictedTime"`

	LastEvent         string `json:"lastEvent"`
	LastEventLocation string `json:"lastEventLocation"`
	LastEventTime     string `json:"lastEventTime"`
}

func (a ArrivalRecord) ParsedPredictedTime() (time.Time, error) {
	return parseTimestamp(a.ActualPredictedTime)
}

func (a ArrivalRecord) ParsedLastEventTime() (time.Time, error) {
	return parseTimestamp(a.LastEventTime)
}

// Timestamps without an offset are local to the network.
var networkLocation = mustLoadLocation("Europe/London")

func mustLoadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return location
}

// ISO-8601 forms seen on the feed. Only the first carries a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(timestampLayouts[0], value)
	if err == nil {
		return parsed, nil
	}

	for _, layout := range timestampLayouts[1:] {
		if parsed, err = time.ParseInLocation(layout, value, networkLocation); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}
