package extraction

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zombor/ocr-extract/internal/provider"
)

// Code identifies a failure kind on the wire
type Code string

const (
	CodeMissingImage  Code = "MISSING_IMAGE"
	CodeConfiguration Code = "CONFIG_ERROR"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"
	CodeProvider      Code = "AI_ERROR"
	CodeEmptyResponse Code = "EMPTY_RESPONSE"
	CodeParse         Code = "PARSE_ERROR"
	CodeProcessing    Code = "PROCESSING_ERROR"
)

var (
	defaultMessages = map[Code]string{
		CodeMissingImage:  "No image data provided",
		CodeConfiguration: "OCR service not configured",
		CodeRateLimited:   "Service is busy. Please try again in a moment.",
		CodeQuotaExceeded: "OCR quota exceeded. Please contact support.",
		CodeProvider:      "Failed to process document",
		CodeEmptyResponse: "No extraction result returned",
		CodeParse:         "Failed to parse extraction results",
		CodeProcessing:    "Unknown error occurred",
	}

	defaultStatuses = map[Code]int{
		CodeMissingImage:  http.StatusBadRequest,
		CodeConfiguration: http.StatusInternalServerError,
		CodeRateLimited:   http.StatusTooManyRequests,
		CodeQuotaExceeded: http.StatusPaymentRequired,
		CodeProvider:      http.StatusInternalServerError,
		CodeEmptyResponse: http.StatusInternalServerError,
		CodeParse:         http.StatusInternalServerError,
		CodeProcessing:    http.StatusInternalServerError,
	}
)

// Error is a failed extraction. Message is safe to show to end users; Err carries the cause.
type Error struct {
	Code    Code
	Message string
	Status  int
	// RawContent holds the untouched provider text for PARSE_ERROR
	RawContent string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, cause error) *Error {
	return &Error{
		Code:    code,
		Message: defaultMessages[code],
		Status:  defaultStatuses[code],
		Err:     cause,
	}
}

// NewProcessingError wraps a fault outside the taxonomy. The cause's text becomes the message.
func NewProcessingError(cause error, status int) *Error {
	e := newError(CodeProcessing, cause)
	if cause != nil {
		e.Message = cause.Error()
	}
	if status != 0 {
		e.Status = status
	}
	return e
}

// AsError returns err as an *Error, wrapping unknown errors as PROCESSING_ERROR
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewProcessingError(err, 0)
}

// providerError translates a provider failure into the taxonomy
func providerError(err error) *Error {
	if errors.Is(err, provider.ErrEmptyResponse) {
		return newError(CodeEmptyResponse, err)
	}

	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return newError(CodeRateLimited, err)
		case http.StatusPaymentRequired:
			return newError(CodeQuotaExceeded, err)
		}
	}

	return newError(CodeProvider, err)
}
