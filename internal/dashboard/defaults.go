package dashboard

import (
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// DefaultCity is tracked when the persisted list is missing or empty.
var DefaultCity = models.CityEntry{Key: "2459115", Label: "New York, NY"}

// DefaultForecast is the built-in forecast shown for DefaultCity until live
// data arrives. Its old Created time lets any real response replace it.
func DefaultForecast() models.Forecast {
	return models.Forecast{
		Key:     DefaultCity.Key,
		Label:   DefaultCity.Label,
		Created: time.Date(2016, time.July, 22, 1, 0, 0, 0, time.UTC),
		Condition: models.Condition{
			Text: "Windy",
			Date: "Thu, 21 Jul 2016 09:00 PM EDT",
			Temp: 56,
			Code: 24,
		},
		Astronomy:  models.Astronomy{Sunrise: "5:43 am", Sunset: "8:21 pm"},
		Atmosphere: models.Atmosphere{Humidity: 56},
		Wind:       models.Wind{Speed: 25, Direction: 195},
		Outlook: []models.DailyItem{
			{Code: 44, High: 86, Low: 70},
			{Code: 44, High: 94, Low: 73},
			{Code: 4, High: 95, Low: 78},
			{Code: 24, High: 75, Low: 89},
			{Code: 24, High: 89, Low: 77},
			{Code: 44, High: 92, Low: 79},
			{Code: 44, High: 89, Low: 77},
		},
	}
}
