package sdk_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terraconstructs/rollcall/pkg/sdk"
)

func TestErrorMessage(t *testing.T) {
	apiErr := func(body string) error {
		return &sdk.APIError{StatusCode: 400, Body: []byte(body)}
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, sdk.DefaultLoginError},
		{"string body", apiErr(`"Too many attempts"`), "Too many attempts"},
		{"plain text body", apiErr("Bad Gateway"), "Bad Gateway"},
		{"detail", apiErr(`{"detail":"Bad"}`), "Bad"},
		{"detail beats non field errors", apiErr(`{"detail":"Bad","non_field_errors":["Other"]}`), "Bad"},
		{"non field errors", apiErr(`{"non_field_errors":["Invalid credentials"]}`), "Invalid credentials"},
		{"first non-empty non field error", apiErr(`{"non_field_errors":["","Second"]}`), "Second"},
		{"error field", apiErr(`{"error":"Locked"}`), "Locked"},
		{"message field", apiErr(`{"message":"Try later"}`), "Try later"},
		{"unknown shape", apiErr(`{"email":["This field is required."]}`), "request failed with status code 400"},
		{"wrapped api error", fmt.Errorf("login: %w", apiErr(`{"detail":"Nope"}`)), "Nope"},
		{"transport error", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sdk.ErrorMessage(tt.err))
		})
	}
}

func TestAPIErrorUnauthorized(t *testing.T) {
	assert.True(t, (&sdk.APIError{StatusCode: 401}).Unauthorized())
	assert.False(t, (&sdk.APIError{StatusCode: 403}).Unauthorized())
}
