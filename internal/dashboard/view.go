package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/icon"
	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Card is the render-ready form of one forecast.
type Card struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Icon        icon.Icon `json:"icon"`
	Temperature int       `json:"temperature"`
	Sunrise     string    `json:"sunrise"`
	Sunset      string    `json:"sunset"`
	Humidity    string    `json:"humidity"`
	WindSpeed   int       `json:"windSpeed"`
	WindDegrees int       `json:"windDegrees"`
	Created     time.Time `json:"created"`
	Outlook     []Day     `json:"outlook"`
}

// Day is one outlook slot.
type Day struct {
	Weekday string    `json:"weekday"`
	Icon    icon.Icon `json:"icon"`
	High    int       `json:"high"`
	Low     int       `json:"low"`
}

// Cards returns a card for every tracked city that has a forecast, in list order.
func (c *Controller) Cards() []Card {
	c.mu.Lock()
	forecasts := make([]models.Forecast, 0, len(c.tracked))
	for _, e := range c.tracked {
		if f, ok := c.cards[e.Key]; ok {
			forecasts = append(forecasts, f)
		}
	}
	c.mu.Unlock()

	today := c.now().Weekday()
	out := make([]Card, 0, len(forecasts))
	for _, f := range forecasts {
		out = append(out, NewCard(f, today))
	}
	return out
}

// NewCard builds the view of f. Outlook slots are labelled by weekday
// starting at today.
func NewCard(f models.Forecast, today time.Weekday) Card {
	card := Card{
		Key:         f.Key,
		Label:       f.Label,
		Description: f.Condition.Text,
		Date:        f.Condition.Date,
		Icon:        icon.ForCode(f.Condition.Code),
		Temperature: round(f.Condition.Temp),
		Sunrise:     f.Astronomy.Sunrise,
		Sunset:      f.Astronomy.Sunset,
		Humidity:    fmt.Sprintf("%d%%", round(f.Atmosphere.Humidity)),
		WindSpeed:   round(f.Wind.Speed),
		WindDegrees: round(f.Wind.Direction),
		Created:     f.Created,
		Outlook:     make([]Day, 0, len(f.Outlook)),
	}
	for i, d := range f.Outlook {
		if i >= models.OutlookDays {
			break
		}
		card.Outlook = append(card.Outlook, Day{
			Weekday: time.Weekday((int(today) + i) % 7).String()[:3],
			Icon:    icon.ForCode(d.Code),
			High:    round(d.High),
			Low:     round(d.Low),
		})
	}
	return card
}

func round(v float64) int {
	return int(math.Round(v))
}
