package dto

import (
	"net/http"

	"github.com/shopadmin/backend/internal/domain/shared"
)

// Error codes returned in the error envelope. They are the domain codes from
// shared so a handler never translates between two vocabularies.
const (
	ErrCodeUnauthorized       = shared.CodeUnauthorized
	ErrCodeInvalidCredentials = shared.CodeInvalidCreds
	ErrCodeForbidden          = shared.CodeForbidden
	ErrCodeValidation         = shared.CodeValidation
	ErrCodeNotFound           = shared.CodeNotFound
	ErrCodeConflict           = shared.CodeConflict
	ErrCodeRateLimited        = shared.CodeRateLimited
	ErrCodeInternal           = shared.CodeInternal
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ValidationDetail describes one invalid field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponseWithRequestID creates an error response carrying the
// request id so clients can quote it in support requests
func NewErrorResponseWithRequestID(code, message, requestID string, details map[string]any) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a VALIDATION_ERROR response with per-field details
func NewValidationErrorResponse(message, requestID string, fields []ValidationDetail) Response {
	details := make(map[string]any, len(fields))
	for _, f := range fields {
		details[f.Field] = f.Message
	}
	return NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID, details)
}
