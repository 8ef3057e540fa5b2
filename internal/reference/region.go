package reference

import "github.com/i474232898/crop-recommendation/internal/common"

// Region is one of the agricultural zones cities are bucketed into.
type Region uint8

const (
	Unknown Region = iota
	North
	South
	East
	West
	Central
	Northeast
)

// DefaultRegion is substituted whenever a city cannot be resolved.
const DefaultRegion = North

// All lists the known regions in display order.
var All = []Region{North, South, East, West, Central, Northeast}

var regionNames = map[Region]string{
	Unknown:   "Unknown",
	North:     "North India",
	South:     "South India",
	East:      "East India",
	West:      "West India",
	Central:   "Central India",
	Northeast: "Northeast India",
}

var regionSlugs = map[Region]string{
	Unknown:   "unknown",
	North:     "north",
	South:     "south",
	East:      "east",
	West:      "west",
	Central:   "central",
	Northeast: "northeast",
}

// Name returns the display name, e.g. "West India".
func (r Region) Name() string {
	if n, ok := regionNames[r]; ok {
		return n
	}
	return regionNames[Unknown]
}

func (r Region) String() string { return r.Name() }

// Slug returns the key used in reference data files.
func (r Region) Slug() string {
	if s, ok := regionSlugs[r]; ok {
		return s
	}
	return regionSlugs[Unknown]
}

// Code is the numeric region code the classifier was trained with.
// Unknown maps to the code of DefaultRegion.
func (r Region) Code() int {
	if r == Unknown || r > Northeast {
		return 0
	}
	return int(r) - 1
}

// Known reports whether r is one of the six regions.
func (r Region) Known() bool {
	return r >= North && r <= Northeast
}

// ParseRegion accepts a slug ("west") or display name ("West India"), case-insensitively.
func ParseRegion(s string) Region {
	key := common.Normalize(s)
	for _, r := range All {
		if key == r.Slug() || key == common.Normalize(r.Name()) {
			return r
		}
	}
	return Unknown
}
