package capture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/rollcall/pkg/sdk/capture"
)

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantData  string
		wantType  string
		wantError bool
	}{
		{name: "base64", in: "data:image/jpeg;base64,aGVsbG8=", wantData: "hello", wantType: "image/jpeg"},
		{name: "unpadded base64", in: "data:image/png;base64,aGVsbG8", wantData: "hello", wantType: "image/png"},
		{name: "percent encoded", in: "data:text/plain,hi%20there", wantData: "hi there", wantType: "text/plain"},
		{name: "extra params", in: "data:image/webp;name=x;base64,aGk=", wantData: "hi", wantType: "image/webp"},
		{name: "no scheme", in: "image/jpeg;base64,aGk=", wantError: true},
		{name: "no comma", in: "data:image/jpeg;base64", wantError: true},
		{name: "bad base64", in: "data:image/jpeg;base64,@@@", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mediaType, err := capture.DecodeDataURL(tt.in)
			if tt.wantError {
				assert.ErrorIs(t, err, capture.ErrInvalidDataURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, string(data))
			assert.Equal(t, tt.wantType, mediaType)
		})
	}
}

func TestEncodeDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", capture.EncodeDataURL("image/png", []byte("hi")))
}
