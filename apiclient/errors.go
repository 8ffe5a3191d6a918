package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork marks transport level failures: DNS errors, refused connections,
// timeouts. The server was never reached or never answered.
var ErrNetwork = errors.New("go-stories: network error")

// ErrSessionExpired is returned when the access token is stale and no refresh
// is possible. Stored tokens are cleared before it surfaces.
var ErrSessionExpired = errors.New("go-stories: session expired")

// HTTPError is a non-2xx response, carrying the server's message when the
// body provided one.
type HTTPError struct {
	Status  int
	Message string
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// FieldError pins a validation failure to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a 422 response with field level detail.
type ValidationError struct {
	HTTPError
	Fields []FieldError
}

// Field returns the message for the named field, or "".
func (e *ValidationError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

// asError classifies a non-2xx response. Non-JSON bodies fall back to the
// bare status.
func (r *response) asError() error {
	var env Envelope
	if len(r.body) > 0 {
		_ = json.Unmarshal(r.body, &env)
	}
	httpErr := HTTPError{Status: r.status, Message: env.message()}
	if r.status == http.StatusUnprocessableEntity {
		return &ValidationError{HTTPError: httpErr, Fields: env.Details}
	}
	return &httpErr
}
