package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
)

// Grant ingestion error codes
const (
	ErrCodeInvalidRange ErrorCode = "GRANT_001"
	ErrCodeUpstream     ErrorCode = "GRANT_002"
	ErrCodeParse        ErrorCode = "GRANT_003"
)

// Persistence and infrastructure error codes
const (
	ErrCodeDBConnection ErrorCode = "STORE_001"
	ErrCodeDBQuery      ErrorCode = "STORE_002"
	ErrCodeCache        ErrorCode = "STORE_003"
	ErrCodeStorage      ErrorCode = "STORE_004"
	ErrCodeMessaging    ErrorCode = "STORE_005"
)

// Sentinel pseudo-codes
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,

	ErrCodeInvalidRange: http.StatusBadRequest,
	ErrCodeUpstream:     http.StatusBadGateway,
	ErrCodeParse:        http.StatusBadGateway,

	ErrCodeDBConnection: http.StatusServiceUnavailable,
	ErrCodeDBQuery:      http.StatusInternalServerError,
	ErrCodeCache:        http.StatusInternalServerError,
	ErrCodeStorage:      http.StatusInternalServerError,
	ErrCodeMessaging:    http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",

	ErrCodeInvalidRange: "invalid date range",
	ErrCodeUpstream:     "grant API request failed",
	ErrCodeParse:        "failed to parse grant API response",

	ErrCodeDBConnection: "store unreachable",
	ErrCodeDBQuery:      "store rejected statement",
	ErrCodeCache:        "cache error",
	ErrCodeStorage:      "object storage error",
	ErrCodeMessaging:    "message publish failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}
