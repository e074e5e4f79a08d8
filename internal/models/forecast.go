package models

import "time"

// OutlookDays is the number of forward daily slots in a forecast.
const OutlookDays = 7

// Forecast is one provider response for a tracked city. Created is the
// provider's generation time and orders competing updates for the same Key.
type Forecast struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Created time.Time `json:"created"`

	Condition  Condition   `json:"condition"`
	Astronomy  Astronomy   `json:"astronomy"`
	Atmosphere Atmosphere  `json:"atmosphere"`
	Wind       Wind        `json:"wind"`
	Outlook    []DailyItem `json:"outlook"`
}

type Condition struct {
	Text string  `json:"text"`
	Date string  `json:"date"`
	Temp float64 `json:"temp"`
	Code int     `json:"code"`
}

type Astronomy struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

type Atmosphere struct {
	Humidity float64 `json:"humidity"`
}

type Wind struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"`
}

// DailyItem is a single day of the forward outlook.
type DailyItem struct {
	Code int     `json:"code"`
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}
