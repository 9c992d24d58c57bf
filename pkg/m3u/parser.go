// Package m3u provides parsing and rewriting functionality for M3U playlist files.
package m3u

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const directivePrefix = "#EXTINF:"

var (
	// ErrBinaryInput is returned when the playlist data cannot be processed as text.
	ErrBinaryInput = errors.New("playlist data is not text")
)

var attributePatterns = map[string]*regexp.Regexp{
	"tvg-id":      regexp.MustCompile(`(?:^|\s)tvg-id="([^"]*)"`),
	"tvg-name":    regexp.MustCompile(`(?:^|\s)tvg-name="([^"]*)"`),
	"group-title": regexp.MustCompile(`(?:^|\s)group-title="([^"]*)"`),
}

// Channel represents a single channel entry in an M3U playlist.
type Channel struct {
	ID   string
	Name string
	URL  string
}

// Playlist is the result of parsing an M3U document.
type Playlist struct {
	Channels []Channel
	// Skipped holds the raw directive lines that did not produce a channel.
	Skipped []string
}

// Parse extracts channel information from M3U playlist data.
//
// Every #EXTINF directive carrying tvg-id, tvg-name and group-title attributes and
// immediately followed by an http(s) address line yields one channel, in document
// order. Directives that do not match are recorded in Skipped rather than reported
// as errors.
func Parse(data []byte) (*Playlist, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	playlist := &Playlist{}
	reader := bufio.NewReader(bytes.NewReader(text))

	var pending string
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("error reading M3U data: %w", readErr)
		}
		if raw == "" && readErr == io.EOF {
			break
		}
		line := strings.TrimSpace(raw)

		if pending != "" {
			directive := pending
			pending = ""

			if channel, ok := parseEntry(directive, line); ok {
				playlist.Channels = append(playlist.Channels, channel)
				continue
			}
			playlist.Skipped = append(playlist.Skipped, directive)
		}

		if strings.HasPrefix(line, directivePrefix) {
			pending = line
		}

		if readErr == io.EOF {
			break
		}
	}

	if pending != "" {
		playlist.Skipped = append(playlist.Skipped, pending)
	}

	return playlist, nil
}

func parseEntry(directive, addressLine string) (Channel, bool) {
	if !isStreamAddress(addressLine) {
		return Channel{}, false
	}

	attributesEnd := 0
	for _, re := range attributePatterns {
		loc := re.FindStringIndex(directive)
		if loc == nil {
			return Channel{}, false
		}
		attributesEnd = max(attributesEnd, loc[1])
	}

	// The display name comma must follow every attribute value, so a comma
	// inside a quoted value never starts the name.
	comma := strings.LastIndex(directive, ",")
	if comma < attributesEnd {
		return Channel{}, false
	}

	return Channel{
		ID:   extractAttribute(directive, "tvg-id"),
		Name: strings.TrimSpace(directive[comma+1:]),
		URL:  addressLine,
	}, true
}

func isStreamAddress(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func extractAttribute(line, attr string) string {
	value, _ := lookupAttribute(line, attr)
	return value
}

// lookupAttribute reads one of the attributes in attributePatterns.
func lookupAttribute(line, attr string) (string, bool) {
	re, ok := attributePatterns[attr]
	if !ok {
		return "", false
	}
	matches := re.FindStringSubmatch(line)
	if len(matches) > 1 {
		return matches[1], true
	}
	return "", false
}

// decodeText rejects binary input and converts legacy single-byte playlists to UTF-8.
func decodeText(data []byte) ([]byte, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrBinaryInput
	}
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode M3U data: %w", err)
	}
	return decoded, nil
}
