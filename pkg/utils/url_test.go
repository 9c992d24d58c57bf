package utils

import (
	"errors"
	"testing"
)

func TestEncodeDecodeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "plain", input: "http://example.com/stream"},
		{name: "query", input: "http://example.com/stream?a=1&b=two words"},
		{name: "unicode path", input: "https://example.com/télé/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeURL(EncodeURL(tt.input))
			if err != nil {
				t.Fatalf("DecodeURL() error = %v", err)
			}
			if decoded != tt.input {
				t.Errorf("DecodeURL(EncodeURL(%q)) = %q", tt.input, decoded)
			}
		})
	}
}

func TestValidateStreamURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "http", input: "http://example.com/s1"},
		{name: "https upper case scheme", input: "HTTPS://example.com/s1"},
		{name: "rtmp", input: "rtmp://example.com/live", wantErr: ErrUnsupportedScheme},
		{name: "no scheme", input: "example.com/s1", wantErr: ErrUnsupportedScheme},
		{name: "no host", input: "http:///s1", wantErr: ErrMissingHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStreamURL(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateStreamURL() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateStreamURL() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
