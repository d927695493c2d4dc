package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// DefaultLoginError is surfaced when nothing more specific is available.
const DefaultLoginError = "Login failed"

var (
	// ErrNotLoggedIn is returned by authenticated calls when no token is stored.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrInvalidLoginResponse is returned when the login endpoint answers 2xx
	// without both an access token and a user record.
	ErrInvalidLoginResponse = errors.New("invalid response from server")
)

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Unauthorized reports whether the server rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// ErrorMessage extracts the most specific human-readable message from err.
// For API errors the body is consulted in this order: a bare string body,
// "detail", the first "non_field_errors" entry, "error", "message". After
// that the error's own text is used, and finally DefaultLoginError.
func ErrorMessage(err error) string {
	if err == nil {
		return DefaultLoginError
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.bodyMessage(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultLoginError
}

func (e *APIError) bodyMessage() string {
	body := bytes.TrimSpace(e.Body)
	if len(body) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if !json.Valid(body) {
			// plain text or HTML error page
			return string(body)
		}
		return ""
	}

	if msg := stringField(fields, "detail"); msg != "" {
		return msg
	}
	if raw, ok := fields["non_field_errors"]; ok {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, item := range list {
				if item != "" {
					return item
				}
			}
		}
	}
	if msg := stringField(fields, "error"); msg != "" {
		return msg
	}
	return stringField(fields, "message")
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
