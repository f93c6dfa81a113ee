// Package handlers implements the HTTP endpoints of the webhook server.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes used in HTTP error bodies.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeRelocationFailed   = "RELOCATION_FAILED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// HTTPErrorResponse is the JSON body of every error response.
type HTTPErrorResponse struct {
	Error HTTPErrorBody `json:"error"`
}

// HTTPErrorBody carries the machine-readable code and context.
type HTTPErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HTTPError is an error with a status code and response body.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// respondWithError writes err as an HTTPErrorResponse. Errors that are not
// an *HTTPError become a 500.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = NewHTTPError(http.StatusInternalServerError, CodeInternal, "internal server error", err)
	}
	WriteJSON(w, httpErr.Status, HTTPErrorResponse{Error: HTTPErrorBody{
		Code:    httpErr.Code,
		Message: httpErr.Message,
		Details: httpErr.Details,
	}})
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, NewHTTPError(http.StatusNotFound, CodeNotFound, "route not found: "+r.URL.Path, nil))
}

// MethodNotAllowedHandler answers known routes called with the wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, NewHTTPError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed: "+r.Method, nil))
}
