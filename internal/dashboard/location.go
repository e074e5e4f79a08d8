package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// OpenAddDialog opens the add-city dialog with the nudge hidden and no selection.
func (c *Controller) OpenAddDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = Dialog{Open: true}
}

// CloseAddDialog closes the dialog and keeps its other fields.
func (c *Controller) CloseAddDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog.Open = false
}

// SelectCity sets the dialog selection.
func (c *Controller) SelectCity(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog.Selection = label
}

// Dialog returns a copy of the dialog state.
func (c *Controller) Dialog() Dialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialog
}

// UseMyLocation locates the device within the locate timeout and selects
// the matching city label in the dialog.
//
// Every failure clears the selection and returns an empty label without an
// error. A timeout also shows the manual-entry nudge; any other failure,
// including an address with no locality, is logged and leaves the nudge as
// it was.
func (c *Controller) UseMyLocation(ctx context.Context) (string, error) {
	if c.locator == nil || c.geocoder == nil {
		return "", ErrNoLocator
	}

	lctx, cancel := context.WithTimeout(ctx, c.locateTimeout)
	coords, err := c.locator.Locate(lctx)
	cancel()
	if err != nil {
		if errors.Is(err, client.ErrLocateTimeout) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
			observability.LocateTotal.WithLabelValues("timeout").Inc()
			c.logger.Info("geolocation timed out, showing nudge")
			c.mu.Lock()
			c.dialog.Selection = ""
			c.dialog.NudgeVisible = true
			c.mu.Unlock()
			return "", nil
		}
		observability.LocateTotal.WithLabelValues("error").Inc()
		c.logger.Warn("geolocation failed", zap.Error(err))
		c.SelectCity("")
		return "", nil
	}

	observability.LocateTotal.WithLabelValues("success").Inc()
	c.mu.Lock()
	c.dialog.NudgeVisible = false
	c.mu.Unlock()

	label, err := c.geocoder.CityName(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		c.logger.Warn("reverse geocoding failed",
			zap.Float64("latitude", coords.Latitude),
			zap.Float64("longitude", coords.Longitude),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
		c.SelectCity("")
		return "", nil
	}

	c.SelectCity(label)
	return label, nil
}
