package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/savid/iptv-guide/pkg/schedule"
)

const (
	msgNoData       = "Channel data not available"
	msgAuthRequired = "Authentication required."
	msgRegionDenied = "Region not allowed."
)

// Clock returns the reference instant used to match guide programmes.
type Clock func() time.Time

type errorResponse struct {
	Error string `json:"error"`
}

// ProgramView is the JSON form of a guide programme.
type ProgramView struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop,omitempty"`
}

func newProgramView(entry schedule.Entry, loc *time.Location) *ProgramView {
	view := &ProgramView{
		Title:       entry.Title,
		Description: entry.Description,
		Start:       entry.Start.In(loc),
	}
	if !entry.OpenEnded() {
		stop := entry.Stop.In(loc)
		view.Stop = &stop
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Error: message})
}
