// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AutelysZ/certkit/internal/api/dto"
	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/p12"
)

// Error codes for API responses.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeParse             = "PARSE_ERROR"
	CodeKeyFormat         = "KEY_FORMAT_ERROR"
	CodeKeyLength         = "KEY_LENGTH_ERROR"
	CodeCapability        = "CAPABILITY_ERROR"
	CodeMissingInput      = "MISSING_INPUT"
	CodeInvalidSerial     = "INVALID_SERIAL"
	CodeBadCSR            = "INVALID_CSR"
	CodeIncorrectPassword = "INCORRECT_PASSWORD"
	CodeInternal          = "INTERNAL_ERROR"
)

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, p12.ErrPassword):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeIncorrectPassword,
			Message: err.Error(),
		}
	case errors.Is(err, keys.ErrCapability):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeCapability,
			Message: err.Error(),
		}
	case errors.Is(err, keys.ErrKeyLength):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeKeyLength,
			Message: err.Error(),
		}
	case errors.Is(err, keys.ErrKeyFormat):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeKeyFormat,
			Message: err.Error(),
		}
	case errors.Is(err, keys.ErrParse):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeParse,
			Message: err.Error(),
		}
	case errors.Is(err, certkit.ErrMissingInput):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeMissingInput,
			Message: err.Error(),
		}
	case errors.Is(err, certkit.ErrInvalidSerial):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeInvalidSerial,
			Message: err.Error(),
		}
	case errors.Is(err, certkit.ErrBadRequest):
		return http.StatusUnprocessableEntity, &dto.APIError{
			Code:    CodeBadCSR,
			Message: err.Error(),
		}
	}

	// Build errors outside the sentinel taxonomy keep their operation
	// context.
	var buildErr *certkit.BuildError
	if errors.As(err, &buildErr) {
		return http.StatusInternalServerError, &dto.APIError{
			Code:    "BUILD_" + strings.ToUpper(buildErr.Op) + "_ERROR",
			Message: buildErr.Error(),
			Details: map[string]string{
				"operation": buildErr.Op,
				"subject":   buildErr.Subject,
			},
		}
	}

	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}
