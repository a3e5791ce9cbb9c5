package handlers

import (
	"net/http"

	"github.com/rentscope/rentscope/internal/application/estimate"
	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
)

// EstimateHandler serves the rent estimate endpoint.
type EstimateHandler struct {
	estimates *estimate.Service
	logger    logging.Logger
}

// NewEstimateHandler wires the estimate handler.
func NewEstimateHandler(estimates *estimate.Service, log logging.Logger) *EstimateHandler {
	return &EstimateHandler{estimates: estimates, logger: log}
}

// Estimate handles GET /api/v1/properties/estimate.  A NotAvailable result
// is a successful response with available=false, not an error status: the
// caller must be able to distinguish "no data" from "request failed".
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	req, err := query.CompileEstimate(*params)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	result, err := h.estimates.Estimate(r.Context(), req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EstimateHandler) parseParams(r *http.Request) (*query.EstimateParams, error) {
	lat, err := requiredFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := requiredFloat(r, "lon")
	if err != nil {
		return nil, err
	}

	params := &query.EstimateParams{
		Lat:          lat,
		Lon:          lon,
		AreaKey:      r.URL.Query().Get("areaKey"),
		PropertyType: r.URL.Query().Get("propertyType"),
	}
	if params.Beds, err = intParam(r, "beds"); err != nil {
		return nil, err
	}
	if params.Baths, err = floatParam(r, "baths"); err != nil {
		return nil, err
	}
	if params.Sqft, err = intParam(r, "sqft"); err != nil {
		return nil, err
	}
	if params.YearBuilt, err = intParam(r, "yearBuilt"); err != nil {
		return nil, err
	}
	return params, nil
}
