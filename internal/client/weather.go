package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// DefaultQueryURL is the public YQL endpoint the original dashboard queried.
const DefaultQueryURL = "https://query.yahooapis.com/v1/public/yql"

// WeatherProvider fetches forecasts by location key. ForecastURL identifies
// the request so responses can be cached by URL.
type WeatherProvider interface {
	ForecastURL(key string) string
	Forecast(ctx context.Context, key, label string) (models.Forecast, []byte, error)
}

// YQLClient queries a YQL-style endpoint: GET <base>?format=json&q=<statement>.
// It serves both forecasts and place lookups.
type YQLClient struct {
	baseURL string
	client  *http.Client
}

// NewYQLClient returns a client for baseURL. A nil hc uses a client without
// a timeout; the caller's context bounds each call.
func NewYQLClient(baseURL string, hc *http.Client) (*YQLClient, error) {
	if baseURL == "" {
		baseURL = DefaultQueryURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid query URL: %w", err)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &YQLClient{baseURL: baseURL, client: hc}, nil
}

func (c *YQLClient) statementURL(statement string) string {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", statement)
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + params.Encode()
}

// ForecastURL implements WeatherProvider.
func (c *YQLClient) ForecastURL(key string) string {
	return c.statementURL("select * from weather.forecast where woeid=" + key)
}

// Forecast implements WeatherProvider. It returns the decoded forecast and
// the raw body for caching.
func (c *YQLClient) Forecast(ctx context.Context, key, label string) (models.Forecast, []byte, error) {
	body, err := get(ctx, c.client, "weather", c.ForecastURL(key))
	if err != nil {
		return models.Forecast{}, nil, fmt.Errorf("fetch forecast for %s: %w", key, err)
	}
	f, err := DecodeForecast(body, key, label)
	if err != nil {
		return models.Forecast{}, nil, err
	}
	return f, body, nil
}

type forecastResponse struct {
	Query struct {
		Created string `json:"created"`
		Results *struct {
			Channel struct {
				Astronomy struct {
					Sunrise string `json:"sunrise"`
					Sunset  string `json:"sunset"`
				} `json:"astronomy"`
				Atmosphere struct {
					Humidity flexNumber `json:"humidity"`
				} `json:"atmosphere"`
				Wind struct {
					Speed     flexNumber `json:"speed"`
					Direction flexNumber `json:"direction"`
				} `json:"wind"`
				Item struct {
					Condition struct {
						Text string     `json:"text"`
						Date string     `json:"date"`
						Temp flexNumber `json:"temp"`
						Code flexNumber `json:"code"`
					} `json:"condition"`
					Forecast []struct {
						Code flexNumber `json:"code"`
						High flexNumber `json:"high"`
						Low  flexNumber `json:"low"`
					} `json:"forecast"`
				} `json:"item"`
			} `json:"channel"`
		} `json:"results"`
	} `json:"query"`
}

// DecodeForecast parses a forecast response body. It is used for both live
// and cached bodies. A body without results means the key is unknown.
func DecodeForecast(body []byte, key, label string) (models.Forecast, error) {
	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Forecast{}, fmt.Errorf("parse forecast: %w", err)
	}
	if resp.Query.Results == nil {
		return models.Forecast{}, fmt.Errorf("forecast for %s: %w", key, ErrLocationNotFound)
	}
	created, err := time.Parse(time.RFC3339, resp.Query.Created)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("%w: created %q", ErrMalformedResponse, resp.Query.Created)
	}

	ch := resp.Query.Results.Channel
	f := models.Forecast{
		Key:     key,
		Label:   label,
		Created: created,
		Condition: models.Condition{
			Text: ch.Item.Condition.Text,
			Date: ch.Item.Condition.Date,
			Temp: float64(ch.Item.Condition.Temp),
			Code: int(ch.Item.Condition.Code),
		},
		Astronomy:  models.Astronomy{Sunrise: ch.Astronomy.Sunrise, Sunset: ch.Astronomy.Sunset},
		Atmosphere: models.Atmosphere{Humidity: float64(ch.Atmosphere.Humidity)},
		Wind:       models.Wind{Speed: float64(ch.Wind.Speed), Direction: float64(ch.Wind.Direction)},
	}
	for i, d := range ch.Item.Forecast {
		if i == models.OutlookDays {
			break
		}
		f.Outlook = append(f.Outlook, models.DailyItem{
			Code: int(d.Code),
			High: float64(d.High),
			Low:  float64(d.Low),
		})
	}
	return f, nil
}
