package http

import (
	"net/http"

	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// CardSource is the read side of the dashboard controller.
type CardSource interface {
	Cards() []dashboard.Card
	Phase() dashboard.Phase
	Dialog() dashboard.Dialog
	Tracked() []models.CityEntry
}

// DashboardHandler serves a read-only JSON view of the dashboard.
type DashboardHandler struct {
	source CardSource
}

func NewDashboardHandler(source CardSource) *DashboardHandler {
	return &DashboardHandler{source: source}
}

// GetCards handles GET /cards.
func (h *DashboardHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"phase":  h.source.Phase(),
		"cities": h.source.Tracked(),
		"cards":  h.source.Cards(),
		"dialog": h.source.Dialog(),
	})
}
