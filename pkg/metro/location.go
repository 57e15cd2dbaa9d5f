package metro

import (
	"regexp"
)

var eventLocationRegex = regexp.MustCompile(`^(.+) Platform (\w+)$`)

// ParseEventLocation splits a lastEventLocation value such as
// "Haymarket Platform 2" into the station name and platform code.
func ParseEventLocation(location string) (stationName string, platformCode string, ok bool) {
	matches := eventLocationRegex.FindStringSubmatch(location)
	if len(matches) != 3 {
		return "", "", false
	}

	return matches[1], matches[2], true
}

// Monument is split into two stations in the reference data: platforms 3
// and 4 are the east-west tunnel, the rest north-south.
func monumentStationCode(platformCode string) string {
	if platformCode == "3" || platformCode == "4" {
		return "MTW"
	}
	return "MTS"
}

// resolveEventLocation turns a lastEventLocation into a platform key. The
// caller must hold n.mu for reading.
func (n *Network) resolveEventLocation(location string) (*PlatformKey, bool) {
	stationName, platformCode, ok := ParseEventLocation(location)
	if !ok {
		return nil, false
	}

	var stationCode string
	if stationName == "Monument" {
		stationCode = monumentStationCode(platformCode)
	} else if code, exists := n.nameToCode[stationName]; exists {
		stationCode = code
	} else {
		return nil, false
	}

	station, exists := n.stations[stationCode]
	if !exists {
		return nil, false
	}
	if _, exists := station.platforms[platformCode]; !exists {
		return nil, false
	}

	return &PlatformKey{StationCode: stationCode, PlatformCode: platformCode}, true
}
