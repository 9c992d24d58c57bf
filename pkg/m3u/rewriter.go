package m3u

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/savid/iptv-guide/pkg/utils"
)

// Rewrite renders channels as an M3U playlist whose stream addresses go through the
// play action of the given base URL.
func Rewrite(channels []Channel, baseURL string) []byte {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")

	baseURL = strings.TrimRight(baseURL, "/")

	for _, channel := range channels {
		fmt.Fprintf(&buf, "#EXTINF:-1 tvg-id=\"%s\" tvg-name=\"%s\" group-title=\"\",%s\n",
			quoteSafe(channel.ID), quoteSafe(channel.Name), channel.Name)

		buf.WriteString(PlayURL(baseURL, channel.URL))
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// PlayURL returns the play action address for a stream.
func PlayURL(baseURL, streamURL string) string {
	if streamURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/play?url=%s", strings.TrimRight(baseURL, "/"), utils.EncodeURL(streamURL))
}

// quoteSafe drops characters that would end an attribute value early.
func quoteSafe(s string) string {
	return strings.NewReplacer(`"`, "", "\n", " ", "\r", " ").Replace(s)
}
