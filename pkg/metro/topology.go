package metro

import (
	"golang.org/x/exp/slices"
)

// Station codes in running order along the two branches. Platform 1 is the
// platform served by trains running in this order.
var (
	greenBranch = []string{
		"APT", "CAL", "BFT", "KSP", "FAW", "WBR", "RGC",
		"SGF", "IRD", "WJS", "JES", "HAY", "MTS", "CEN", "GHD", "GST", "FEL", "HTH", "PLW",
		"FGT", "BYW", "EBO", "SBN", "SFC", "STP", "SUN", "PLI", "UNI", "MLF", "PAL", "SHL",
	}

	yellowBranch = []string{
		"SJM", "MTW", "MAN", "BYK", "CRD", "WKG", "WSD", "HDR", "HOW",
		"PCM", "MWL", "NSH", "TYN", "CUL", "WTL", "MSN", "WMN", "SMR", "NPK", "PMV", "BTN", "FLE", "LBN",
		"SGF", "IRD", "WJS", "JES", "HAY", "MTS", "CEN", "GHD", "GST", "FEL", "HTH", "PLW",
		"HEB", "JAR", "BDE", "SMD", "TDK", "CHI", "SSS",
	}
)

type platformGroup struct {
	platform string
	stations []string
}

// Platform to use when the journey has to change branch. The groups are
// disjoint and only cover the stations that sit on a single branch.
var crossBranchGroups = []platformGroup{
	{
		// Airport branch, towards South Gosforth
		platform: "1",
		stations: []string{"APT", "CAL", "BFT", "KSP", "FAW", "WBR", "RGC"},
	},
	{
		// Sunderland branch, towards Pelaw
		platform: "2",
		stations: []string{"FGT", "BYW", "EBO", "SBN", "SFC", "STP", "SUN", "PLI", "UNI", "MLF", "PAL", "SHL"},
	},
	{
		// South Shields branch, towards Pelaw
		platform: "2",
		stations: []string{"HEB", "JAR", "BDE", "SMD", "TDK", "CHI", "SSS"},
	},
	{
		// Coast, round towards South Gosforth
		platform: "1",
		stations: []string{"PCM", "MWL", "NSH", "TYN", "CUL", "WTL", "MSN", "WMN", "SMR", "NPK", "PMV", "BTN", "FLE", "LBN"},
	},
	{
		// City and Walker, back towards Monument
		platform: "2",
		stations: []string{"SJM", "MTW", "MAN", "BYK", "CRD", "WKG", "WSD", "HDR", "HOW"},
	},
}

// WhichPlatform picks the platform at fromCode that trains heading for
// toCode leave from. It only looks at the fixed branch tables, so callers
// wanting code validation should use Network.WhichPlatform.
func WhichPlatform(fromCode string, toCode string) (string, error) {
	if fromCode == toCode {
		return "", ErrNoPlatformRoute
	}

	for _, branch := range [][]string{greenBranch, yellowBranch} {
		fromIndex := slices.Index(branch, fromCode)
		toIndex := slices.Index(branch, toCode)

		if fromIndex == -1 || toIndex == -1 {
			continue
		}

		if fromIndex < toIndex {
			return "1", nil
		}
		return "2", nil
	}

	for _, group := range crossBranchGroups {
		if slices.Contains(group.stations, fromCode) {
			return group.platform, nil
		}
	}

	return "", ErrNoPlatformRoute
}
