package handlers

import (
	"net/http"

	"github.com/rentscope/rentscope/internal/application/cluster"
	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
)

// MapHandler serves the map viewport endpoint.
type MapHandler struct {
	clusters *cluster.Service
	logger   logging.Logger
}

// NewMapHandler wires the viewport handler.
func NewMapHandler(clusters *cluster.Service, log logging.Logger) *MapHandler {
	return &MapHandler{clusters: clusters, logger: log}
}

// Listings handles GET /api/v1/map/listings.
func (h *MapHandler) Listings(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	viewport, err := query.CompileViewport(*params)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	fc, err := h.clusters.Cluster(r.Context(), viewport)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *MapHandler) parseParams(r *http.Request) (*query.ViewportParams, error) {
	west, err := requiredFloat(r, "west")
	if err != nil {
		return nil, err
	}
	south, err := requiredFloat(r, "south")
	if err != nil {
		return nil, err
	}
	east, err := requiredFloat(r, "east")
	if err != nil {
		return nil, err
	}
	north, err := requiredFloat(r, "north")
	if err != nil {
		return nil, err
	}
	zoom, err := requiredFloat(r, "zoom")
	if err != nil {
		return nil, err
	}

	params := &query.ViewportParams{
		West: west, South: south, East: east, North: north, Zoom: zoom,
		PropertyType: r.URL.Query().Get("propertyType"),
		Status:       r.URL.Query().Get("status"),
	}
	if params.MinPrice, err = floatParam(r, "minPrice"); err != nil {
		return nil, err
	}
	if params.MaxPrice, err = floatParam(r, "maxPrice"); err != nil {
		return nil, err
	}
	if params.MinBeds, err = intParam(r, "minBeds"); err != nil {
		return nil, err
	}
	if params.MinBaths, err = floatParam(r, "minBaths"); err != nil {
		return nil, err
	}
	return params, nil
}
