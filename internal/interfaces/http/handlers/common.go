// Package handlers contains the HTTP request handlers for the map viewport
// and rent estimate endpoints plus the operational probes.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAppError maps a typed error to its HTTP status.  Internal detail is
// only exposed for caller-correctable errors; store internals never leak.
func writeAppError(w http.ResponseWriter, log logging.Logger, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)

	body := errorBody{Code: string(code)}
	if appErr, ok := err.(*errors.AppError); ok {
		body.Message = appErr.Message
		if status < http.StatusInternalServerError {
			body.Detail = appErr.Detail
		}
	} else {
		body.Message = "internal error"
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logging.Err(err))
		body.Message = "internal error"
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

// Query parameter helpers.  Absent parameters return nil; malformed ones
// return a filter validation error naming the parameter.

func floatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(errors.CodeFilterInvalid, "parameter must be a number").WithDetail(name)
	}
	return &v, nil
}

func intParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(errors.CodeFilterInvalid, "parameter must be an integer").WithDetail(name)
	}
	return &v, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	v, err := floatParam(r, name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, errors.New(errors.CodeValidation, "missing required parameter").WithDetail(name)
	}
	return *v, nil
}
