package response

import (
	"errors"
	"net/http"
)

// Error codes for standardized error responses
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeExtractionFailed    = "EXTRACTION_FAILED"
	ErrCodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrCodeSerializationFailed = "SERIALIZATION_FAILED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
)

var (
	ErrNotFound            = &Error{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "not found"}
	ErrExtractionFailed    = &Error{Status: http.StatusBadRequest, Code: ErrCodeExtractionFailed, Message: "extraction failed"}
	ErrPayloadTooLarge     = &Error{Status: http.StatusRequestEntityTooLarge, Code: ErrCodePayloadTooLarge, Message: "payload too large"}
	ErrSerializationFailed = &Error{Status: http.StatusInternalServerError, Code: ErrCodeSerializationFailed, Message: "failed to serialize response"}
	ErrInternal            = &Error{Status: http.StatusInternalServerError, Code: ErrCodeInternalError, Message: "internal error"}
	ErrRateLimited         = &Error{Status: http.StatusTooManyRequests, Code: ErrCodeRateLimited, Message: "rate limit exceeded"}
)

// Error is a failure with a fixed HTTP rendering. It is both an error and
// a Responder, so handlers can return it directly.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Code == e.Code
}

// IntoResponse renders e as {error, code}. A nil *Error renders nothing,
// so a handler returning one as its value gets the empty-response path.
func (e *Error) IntoResponse() *Response {
	if e == nil {
		return nil
	}
	if e.Code == ErrCodeSerializationFailed {
		return SerializationFailed()
	}
	return JSONBody(e.Status, errorBody{Error: e.Message, Code: e.Code})
}

// NewError builds an Error with the given rendering.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest is a 400 with the INVALID_REQUEST code.
func BadRequest(message string) *Error {
	return NewError(http.StatusBadRequest, ErrCodeInvalidRequest, message)
}

// ExtractionFailed wraps an extractor failure as a 400.
func ExtractionFailed(err error) *Error {
	msg := "extraction failed"
	if err != nil {
		msg = "extraction failed: " + err.Error()
	}
	return &Error{Status: http.StatusBadRequest, Code: ErrCodeExtractionFailed, Message: msg, Err: err}
}

// PayloadTooLarge wraps a body size violation as a 413.
func PayloadTooLarge(err error) *Error {
	return &Error{Status: http.StatusRequestEntityTooLarge, Code: ErrCodePayloadTooLarge, Message: "payload too large", Err: err}
}

// FromError renders err. Errors that carry their own rendering keep it;
// everything else is an opaque 500.
func FromError(err error) *Response {
	var r Responder
	if errors.As(err, &r) {
		if resp := r.IntoResponse(); resp != nil {
			return resp
		}
	}
	return ErrInternal.IntoResponse()
}
