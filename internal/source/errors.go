package source

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrorType categorizes upstream source failures.
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorRateLimited
	ErrorNotFound
	ErrorForbidden
	ErrorServerError
	ErrorBadRequest
	ErrorUnauthorized
)

// APIError represents an upstream source error with additional context
type APIError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return e.Message
}

// errorResponse is the JSON error body some sources return.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ClassifyError determines the type of error from an HTTP response
func ClassifyError(resp *http.Response) *APIError {
	if resp == nil {
		return &APIError{
			Type:      ErrorUnknown,
			Message:   "nil response",
			Retryable: false,
		}
	}

	var srcErr errorResponse
	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err == nil {
			_ = json.Unmarshal(bodyBytes, &srcErr)
		}
		// Body is consumed here, the caller should not read it again.
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Type:       ErrorUnknown,
		Retryable:  false,
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		apiErr.Type = ErrorRateLimited
		apiErr.Message = "rate limited by source"
		apiErr.Retryable = true

	case http.StatusNotFound:
		apiErr.Type = ErrorNotFound
		apiErr.Message = "source document not found (404)"
		apiErr.Retryable = false

	case http.StatusForbidden:
		apiErr.Type = ErrorForbidden
		apiErr.Message = "forbidden (403)"
		apiErr.Retryable = false

	case http.StatusUnauthorized:
		apiErr.Type = ErrorUnauthorized
		apiErr.Message = "unauthorized (401) - check source credentials"
		apiErr.Retryable = false

	case http.StatusBadRequest:
		apiErr.Type = ErrorBadRequest
		apiErr.Message = "bad request (400)"
		apiErr.Retryable = false

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.Type = ErrorServerError
		apiErr.Message = "source server error (5xx)"
		apiErr.Retryable = true

	default:
		if resp.StatusCode >= 500 {
			apiErr.Type = ErrorServerError
			apiErr.Message = "server error"
			apiErr.Retryable = true
		} else if resp.StatusCode >= 400 {
			apiErr.Type = ErrorBadRequest
			apiErr.Message = "client error"
			apiErr.Retryable = false
		}
	}

	if srcErr.Message != "" {
		apiErr.Message += ": " + srcErr.Message
	} else if srcErr.Error != "" {
		apiErr.Message += ": " + srcErr.Error
	}

	return apiErr
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// IsPermanent checks if an error is permanent (should not be retried)
func IsPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Type == ErrorNotFound ||
		apiErr.Type == ErrorBadRequest ||
		apiErr.Type == ErrorUnauthorized ||
		apiErr.Type == ErrorForbidden
}
