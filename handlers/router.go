package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-guide/config"
	"github.com/savid/iptv-guide/pkg/access"
	"github.com/savid/iptv-guide/pkg/data"
)

// ActionHandler dispatches on query parameters: play wins, then epg together with
// name and stream_url, and anything else lists channels.
type ActionHandler struct {
	play  http.Handler
	guide http.Handler
	list  http.Handler
}

// NewActionHandler creates a new action router.
func NewActionHandler(play, guide, list http.Handler) *ActionHandler {
	return &ActionHandler{
		play:  play,
		guide: guide,
		list:  list,
	}
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	switch {
	case query.Has("play"):
		h.play.ServeHTTP(w, r)
	case query.Has("epg") && query.Has("name") && query.Has("stream_url"):
		h.guide.ServeHTTP(w, r)
	default:
		h.list.ServeHTTP(w, r)
	}
}

// NewRouter wires every endpoint. Channel listings and guides sit behind the
// configured token and region gates; playback and the playlist do not.
func NewRouter(store *data.Store, cfg *config.Config, clock Clock, logger *logrus.Logger) *mux.Router {
	gated := GateMiddleware(
		access.TokenGate{Token: cfg.AuthToken},
		access.RegionGate{Header: cfg.RegionHeader, Allowed: cfg.AllowedRegions},
		logger,
	)

	channels := gated(NewChannelsHandler(store, cfg, clock, logger))
	guide := gated(NewEPGHandler(store, cfg, clock, logger))
	play := NewPlayHandler(logger)

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))

	router.Handle("/channels", channels).Methods(http.MethodGet)
	router.Handle("/channels/{id}/guide", guide).Methods(http.MethodGet)
	router.Handle("/play", play).Methods(http.MethodGet)
	router.Handle("/playlist.m3u", NewM3UHandler(store, cfg, logger)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !store.HasData() {
			http.Error(w, msgNoData, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	router.Handle("/", NewActionHandler(play, guide, channels)).Methods(http.MethodGet)

	return router
}
