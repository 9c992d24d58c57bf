package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-guide/pkg/utils"
)

// PlayHandler hands a stream address to the client's player by redirecting to it.
type PlayHandler struct {
	logger *logrus.Logger
}

// NewPlayHandler creates a new play handler.
func NewPlayHandler(logger *logrus.Logger) *PlayHandler {
	return &PlayHandler{logger: logger}
}

// ServeHTTP reads the address from the url query parameter, or from play when
// reached through the action router.
func (h *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	streamURL := query.Get("url")
	if streamURL == "" {
		streamURL = query.Get("play")
	}

	if streamURL == "" {
		writeJSONError(w, "Missing stream URL", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateStreamURL(streamURL); err != nil {
		h.logger.WithError(err).WithField("url", streamURL).Warn("Rejected stream URL")
		writeJSONError(w, "Invalid stream URL", http.StatusBadRequest)
		return
	}

	h.logger.WithField("url", streamURL).Debug("Redirecting to stream")
	http.Redirect(w, r, streamURL, http.StatusFound)
}
