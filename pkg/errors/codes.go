package errors

import "net/http"

// ErrorCode is a string identifier for a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every module.
const (
	CodeOK            ErrorCode = "OK"
	CodeUnknown       ErrorCode = "COMMON_000"
	CodeInternal      ErrorCode = "COMMON_001"
	CodeValidation    ErrorCode = "COMMON_002"
	CodeNotFound      ErrorCode = "COMMON_003"
	CodeRateLimited   ErrorCode = "COMMON_004"
	CodeUnavailable   ErrorCode = "COMMON_005"
	CodeTimeout       ErrorCode = "COMMON_006"
	CodeSerialization ErrorCode = "COMMON_007"
	CodeDatabase      ErrorCode = "COMMON_008"
	CodeCache         ErrorCode = "COMMON_009"
)

// Map/clustering module error codes.
const (
	CodeViewportInvalid ErrorCode = "MAP_001"
	CodeViewportAbusive ErrorCode = "MAP_002"
	CodeFilterInvalid   ErrorCode = "MAP_003"
)

// Rent estimation module error codes.
const (
	CodeEstimateCoordinatesInvalid ErrorCode = "RENT_001"
	CodeEstimateNotAvailable       ErrorCode = "RENT_002"
	CodeBenchmarkNotFound          ErrorCode = "RENT_003"
)

// HTTPStatus maps an ErrorCode to the HTTP status an interface layer should
// emit.  Unknown codes map to 500 so that a forgotten mapping fails safe.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeValidation, CodeViewportInvalid, CodeViewportAbusive,
		CodeFilterInvalid, CodeEstimateCoordinatesInvalid:
		return http.StatusBadRequest
	case CodeNotFound, CodeBenchmarkNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable, CodeDatabase, CodeCache:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
