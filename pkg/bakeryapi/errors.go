package bakeryapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bakery/pkg/fetch"
)

// APIError is a refusal reported by the backend, either as a
// {success:false} envelope or as a non-2xx response carrying a message.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "bakeryapi: " + e.Message
	}
	return fmt.Sprintf("bakeryapi: %s (HTTP %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// ValidationError is returned before any request is sent when a required
// input is missing or out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bakeryapi: invalid %s: %s", e.Field, e.Reason)
}

// SchemaError reports a response body that does not match the shape the
// client expects for its endpoint.
type SchemaError struct {
	Schema string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("bakeryapi: response does not match %s schema: %v", e.Schema, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err means the session cookie is missing or expired.
func IsUnauthorized(err error) bool {
	return fetch.StatusOf(err) == http.StatusUnauthorized
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Details string          `json:"details"`
	Error   json.RawMessage `json:"error"`
}

// text picks the human readable reason out of the envelope.
func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Error) > 0 {
		var s string
		if json.Unmarshal(e.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return e.Details
}

// translate turns fetch failures carrying a backend message into APIErrors.
func translate(err error) error {
	var httpErr *fetch.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	var env envelope
	msg := ""
	if json.Unmarshal(httpErr.Body, &env) == nil {
		msg = env.text()
	}
	if msg == "" {
		msg = strings.ToLower(http.StatusText(httpErr.Status))
	}
	return &APIError{Status: httpErr.Status, Message: msg, Err: err}
}
