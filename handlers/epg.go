package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/savid/iptv-guide/config"
	"github.com/savid/iptv-guide/pkg/data"
	"github.com/savid/iptv-guide/pkg/m3u"
	"github.com/savid/iptv-guide/pkg/schedule"
)

const clockLayout = "15:04"

// GuideRow is one programme of a channel's daily guide.
type GuideRow struct {
	Label   string `json:"label"`
	PlayURL string `json:"play_url,omitempty"`
	ProgramView
}

// GuideResponse is the daily guide body.
type GuideResponse struct {
	ChannelID string     `json:"channel_id"`
	Name      string     `json:"name"`
	Date      string     `json:"date"`
	Programs  []GuideRow `json:"programs"`
}

// EPGHandler handles requests for a channel's guide for the current day.
type EPGHandler struct {
	store  *data.Store
	config *config.Config
	clock  Clock
	logger *logrus.Logger
}

// NewEPGHandler creates a new EPG handler instance.
func NewEPGHandler(store *data.Store, cfg *config.Config, clock Clock, logger *logrus.Logger) *EPGHandler {
	return &EPGHandler{
		store:  store,
		config: cfg,
		clock:  clock,
		logger: logger,
	}
}

// ServeHTTP reads the channel id from the route, or from the epg query parameter
// when reached through the action router.
func (h *EPGHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	channelID, ok := mux.Vars(r)["id"]
	if !ok {
		channelID = query.Get("epg")
	}

	name := query.Get("name")
	if name == "" {
		name = channelID
	}

	snapshot, ok := h.store.Get()
	if !ok {
		h.logger.Error(msgNoData)
		writeJSONError(w, msgNoData, http.StatusServiceUnavailable)
		return
	}

	loc := h.config.Location()
	now := h.clock().In(loc)

	today := schedule.TodayPrograms(snapshot.Guide.Index, channelID, now)
	if len(today) == 0 {
		h.logger.WithField("channel", channelID).Debug("No programmes today")
		writeJSONError(w, fmt.Sprintf("No guide found for %s today.", name), http.StatusNotFound)
		return
	}

	playURL := m3u.PlayURL(h.config.BaseURL, query.Get("stream_url"))

	resp := GuideResponse{
		ChannelID: channelID,
		Name:      name,
		Date:      now.Format("2006-01-02"),
		Programs:  make([]GuideRow, 0, len(today)),
	}
	for _, entry := range today {
		resp.Programs = append(resp.Programs, GuideRow{
			Label:       RowLabel(entry, loc),
			PlayURL:     playURL,
			ProgramView: *newProgramView(entry, loc),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// RowLabel renders "HH:MM-HH:MM Title". The stop half is empty for open-ended
// programmes.
func RowLabel(entry schedule.Entry, loc *time.Location) string {
	stop := ""
	if !entry.OpenEnded() {
		stop = entry.Stop.In(loc).Format(clockLayout)
	}
	return fmt.Sprintf("%s-%s %s", entry.Start.In(loc).Format(clockLayout), stop, entry.Title)
}
