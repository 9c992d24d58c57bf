// Package utils provides helpers for carrying stream addresses through action URLs.
package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnsupportedScheme is returned when the URL scheme is not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrMissingHost is returned when the URL has no host.
	ErrMissingHost = errors.New("missing host in URL")
)

// EncodeURL encodes a URL for use in query parameters.
func EncodeURL(rawURL string) string {
	return url.QueryEscape(rawURL)
}

// DecodeURL decodes a URL from query parameter encoding.
func DecodeURL(encoded string) (string, error) {
	return url.QueryUnescape(encoded)
}

// ValidateStreamURL checks that a stream address can be handed to a player.
func ValidateStreamURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}

	if parsed.Host == "" {
		return ErrMissingHost
	}

	return nil
}
