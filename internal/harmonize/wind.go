package harmonize

import "strings"

// windCardinals maps the 16-point compass rose to degrees, clockwise in
// 22.5° steps from N = 0°. Values outside this closed set (including
// spelled-out directions like "West") do not resolve.
var windCardinals = map[string]float64{
	"N":   0,
	"NNE": 22.5,
	"NE":  45,
	"ENE": 67.5,
	"E":   90,
	"ESE": 112.5,
	"SE":  135,
	"SSE": 157.5,
	"S":   180,
	"SSW": 202.5,
	"SW":  225,
	"WSW": 247.5,
	"W":   270,
	"WNW": 292.5,
	"NW":  315,
	"NNW": 337.5,
}

// CardinalToDegrees resolves a compass cardinal like "NNE" to degrees.
// Matching is case-insensitive and whitespace-tolerant.
func CardinalToDegrees(cardinal string) (float64, bool) {
	deg, ok := windCardinals[strings.ToUpper(strings.TrimSpace(cardinal))]
	return deg, ok
}
