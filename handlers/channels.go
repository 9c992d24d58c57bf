package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-guide/config"
	"github.com/savid/iptv-guide/pkg/data"
	"github.com/savid/iptv-guide/pkg/schedule"
)

// ChannelView is one row of the channel listing.
type ChannelView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Label     string       `json:"label"`
	StreamURL string       `json:"stream_url"`
	GuideURL  string       `json:"guide_url"`
	Current   *ProgramView `json:"current,omitempty"`
	Next      *ProgramView `json:"next,omitempty"`
}

// ChannelsResponse is the channel listing body.
type ChannelsResponse struct {
	Channels []ChannelView `json:"channels"`
	Skipped  int           `json:"skipped"`
}

// ChannelsHandler lists playlist channels together with what is airing now.
type ChannelsHandler struct {
	store  *data.Store
	config *config.Config
	clock  Clock
	logger *logrus.Logger
}

// NewChannelsHandler creates a new channel listing handler.
func NewChannelsHandler(store *data.Store, cfg *config.Config, clock Clock, logger *logrus.Logger) *ChannelsHandler {
	return &ChannelsHandler{
		store:  store,
		config: cfg,
		clock:  clock,
		logger: logger,
	}
}

func (h *ChannelsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := h.store.Get()
	if !ok {
		h.logger.Error(msgNoData)
		writeJSONError(w, msgNoData, http.StatusServiceUnavailable)
		return
	}

	loc := h.config.Location()
	now := h.clock().In(loc)

	resp := ChannelsResponse{
		Channels: make([]ChannelView, 0, len(snapshot.Playlist.Channels)),
		Skipped:  len(snapshot.Playlist.Skipped),
	}

	for _, channel := range snapshot.Playlist.Channels {
		today := schedule.TodayPrograms(snapshot.Guide.Index, channel.ID, now)

		view := ChannelView{
			ID:        channel.ID,
			Name:      channel.Name,
			Label:     channel.Name,
			StreamURL: channel.URL,
			GuideURL:  GuideURL(h.config.BaseURL, channel.ID, channel.Name, channel.URL),
		}
		if current, ok := schedule.CurrentProgram(today, now); ok {
			view.Label = fmt.Sprintf("%s (%s)", channel.Name, current.Title)
			view.Current = newProgramView(current, loc)
		}
		if next, ok := schedule.NextProgram(today, now); ok {
			view.Next = newProgramView(next, loc)
		}

		resp.Channels = append(resp.Channels, view)
	}

	h.logger.WithField("channels", len(resp.Channels)).Debug("Listed channels")
	writeJSON(w, http.StatusOK, resp)
}

// GuideURL returns the action address that lists today's guide for a channel.
func GuideURL(baseURL, channelID, name, streamURL string) string {
	query := url.Values{}
	query.Set("epg", channelID)
	query.Set("name", name)
	query.Set("stream_url", streamURL)
	return fmt.Sprintf("%s/?%s", strings.TrimRight(baseURL, "/"), query.Encode())
}
