package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-guide/config"
	"github.com/savid/iptv-guide/pkg/data"
	"github.com/savid/iptv-guide/pkg/m3u"
)

// M3UHandler serves the parsed channels as a playlist whose addresses point at
// the play action.
type M3UHandler struct {
	store  *data.Store
	config *config.Config
	logger *logrus.Logger
}

// NewM3UHandler creates a new M3U handler instance.
func NewM3UHandler(store *data.Store, cfg *config.Config, logger *logrus.Logger) *M3UHandler {
	return &M3UHandler{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

func (h *M3UHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := h.store.Get()
	if !ok {
		h.logger.Error("M3U data not available")
		http.Error(w, "M3U data not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	_, _ = w.Write(m3u.Rewrite(snapshot.Playlist.Channels, h.config.BaseURL))
}
