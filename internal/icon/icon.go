// Package icon maps provider weather condition codes to display categories.
package icon

import (
	"strconv"
	"strings"
)

// Icon is a display category for a weather condition.
type Icon string

const (
	ClearDay        Icon = "clear-day"
	Rain            Icon = "rain"
	Thunderstorms   Icon = "thunderstorms"
	Snow            Icon = "snow"
	Fog             Icon = "fog"
	Windy           Icon = "windy"
	Cloudy          Icon = "cloudy"
	PartlyCloudyDay Icon = "partly-cloudy-day"
	// Unknown is returned for any code without a category.
	Unknown Icon = "unknown"
)

// codes follows the provider's condition code table.
var codes = map[int]Icon{
	25:   ClearDay, // cold
	32:   ClearDay, // sunny
	33:   ClearDay, // fair (night)
	34:   ClearDay, // fair (day)
	36:   ClearDay, // hot
	3200: ClearDay, // not available

	0:  Rain, // tornado
	1:  Rain, // tropical storm
	2:  Rain, // hurricane
	6:  Rain, // mixed rain and sleet
	8:  Rain, // freezing drizzle
	9:  Rain, // drizzle
	10: Rain, // freezing rain
	11: Rain, // showers
	12: Rain, // showers
	17: Rain, // hail
	35: Rain, // mixed rain and hail
	40: Rain, // scattered showers

	3:  Thunderstorms, // severe thunderstorms
	4:  Thunderstorms, // thunderstorms
	37: Thunderstorms, // isolated thunderstorms
	38: Thunderstorms, // scattered thunderstorms
	39: Thunderstorms, // scattered thunderstorms
	45: Thunderstorms, // thundershowers
	47: Thunderstorms, // isolated thundershowers

	5:  Snow, // mixed rain and snow
	7:  Snow, // mixed snow and sleet
	13: Snow, // snow flurries
	14: Snow, // light snow showers
	16: Snow, // snow
	18: Snow, // sleet
	41: Snow, // heavy snow
	42: Snow, // scattered snow showers
	43: Snow, // heavy snow
	46: Snow, // snow showers

	15: Fog, // blowing snow
	19: Fog, // dust
	20: Fog, // foggy
	21: Fog, // haze
	22: Fog, // smoky

	23: Windy, // blustery
	24: Windy, // windy

	26: Cloudy, // cloudy
	27: Cloudy, // mostly cloudy (night)
	28: Cloudy, // mostly cloudy (day)
	31: Cloudy, // clear (night)

	29: PartlyCloudyDay, // partly cloudy (night)
	30: PartlyCloudyDay, // partly cloudy (day)
	44: PartlyCloudyDay, // partly cloudy
}

// ForCode returns the category for a condition code, or Unknown.
func ForCode(code int) Icon {
	if i, ok := codes[code]; ok {
		return i
	}
	return Unknown
}

// ForCodeString parses a decimal code as the provider sends it and maps it.
// Unparseable input yields Unknown.
func ForCodeString(s string) Icon {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Unknown
	}
	return ForCode(code)
}
