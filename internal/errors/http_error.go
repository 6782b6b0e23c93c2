package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Kind:    http.StatusText(code),
		Message: message,
	}
}

var (
	ErrUnauthorized = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }
	ErrForbidden    = func(msg string) *HTTPError { return NewHTTPError(http.StatusForbidden, msg) }
	ErrBadRequest   = func(msg string) *HTTPError { return NewHTTPError(http.StatusBadRequest, msg) }
)

// StatusFor maps an engine error kind to the HTTP status a client sees.
func StatusFor(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case NoCapacity, InvalidTransition, DuplicateID:
		return http.StatusConflict
	case InvalidDuration, InvalidLot:
		return http.StatusBadRequest
	case UnknownLot, NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts any error into an HTTPError. Unclassified errors are
// reported as internal without leaking their text.
func FromError(err error) *HTTPError {
	if he, ok := err.(*HTTPError); ok {
		return he
	}
	code := StatusFor(err)
	kind, ok := KindOf(err)
	if !ok {
		return NewHTTPError(code, "internal server error")
	}
	return &HTTPError{Code: code, Kind: kind.String(), Message: err.Error()}
}

// Write renders err as a JSON body with the matching status code.
func Write(w http.ResponseWriter, err error) {
	he := FromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Code)
	json.NewEncoder(w).Encode(he)
}
