package models

// City is one record of the autocomplete index: an arbitrary record id
// mapped to a display name. The index is ordered by Name.
type City struct {
	ID   string `json:"id" storm:"id"`
	Name string `json:"name" storm:"index"`
}

// CityEntry is a tracked city as persisted by the dashboard.
// Key is the provider's opaque location identifier (a woeid).
type CityEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}
