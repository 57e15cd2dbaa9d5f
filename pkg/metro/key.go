package metro

import (
	"cmp"
	"fmt"
)

// PlatformKey identifies a single platform across the network.
type PlatformKey struct {
	StationCode  string `json:"station"`
	PlatformCode string `json:"platform"`
}

func (k PlatformKey) String() string {
	return fmt.Sprintf("%s:%s", k.StationCode, k.PlatformCode)
}

func comparePlatformKeys(a, b PlatformKey) int {
	if c := cmp.Compare(a.StationCode, b.StationCode); c != 0 {
		return c
	}
	return cmp.Compare(a.PlatformCode, b.PlatformCode)
}
