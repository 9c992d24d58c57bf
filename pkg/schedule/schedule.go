// Package schedule matches parsed guide programmes against a reference instant.
//
// Matching happens in two independent passes: TodayPrograms keeps the programmes
// that start on the reference instant's calendar date, and CurrentProgram finds
// the programme airing at that instant within such a list. A programme that
// started the previous day and runs past midnight is therefore never current.
// Neither pass reads the wall clock; the caller always supplies "now".
package schedule

import (
	"time"

	"github.com/savid/iptv-guide/pkg/epg"
)

// TimeLayout is the guide timestamp convention: YYYYMMDDHHMMSS ±HHMM.
const TimeLayout = "20060102150405 -0700"

// Entry is a guide programme with parsed timestamps.
type Entry struct {
	Title       string
	Description string
	Start       time.Time
	// Stop is the zero time for open-ended programmes.
	Stop time.Time
}

// OpenEnded reports whether the programme has no known stop time.
func (e Entry) OpenEnded() bool {
	return e.Stop.IsZero()
}

// Contains reports whether now falls within the programme, bounds included.
// An open-ended programme contains every instant from its start onwards.
func (e Entry) Contains(now time.Time) bool {
	if now.Before(e.Start) {
		return false
	}
	return e.OpenEnded() || !now.After(e.Stop)
}

// ParseTime parses a guide timestamp.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(TimeLayout, value)
}

// TodayPrograms returns the programmes of channelID whose start falls on the same
// calendar date as now, in now's location. Programmes with an unparseable start
// are dropped; an unparseable or empty stop makes the programme open-ended. The
// result keeps guide order and is empty for unknown channels.
func TodayPrograms(index epg.Index, channelID string, now time.Time) []Entry {
	programmes := index[channelID]
	if len(programmes) == 0 {
		return nil
	}

	year, month, day := now.Date()
	loc := now.Location()

	var entries []Entry
	for _, programme := range programmes {
		start, err := ParseTime(programme.Start)
		if err != nil {
			continue
		}

		y, m, d := start.In(loc).Date()
		if y != year || m != month || d != day {
			continue
		}

		entry := Entry{
			Title:       programme.Title,
			Description: programme.Description,
			Start:       start,
		}
		if stop, err := ParseTime(programme.Stop); err == nil {
			entry.Stop = stop
		}

		entries = append(entries, entry)
	}

	return entries
}

// CurrentProgram returns the first programme in the list that contains now.
// Overlapping programmes are not resolved beyond list order.
func CurrentProgram(programs []Entry, now time.Time) (Entry, bool) {
	for _, program := range programs {
		if program.Contains(now) {
			return program, true
		}
	}
	return Entry{}, false
}

// NextProgram returns the earliest programme starting after now. Ties go to the
// programme listed first.
func NextProgram(programs []Entry, now time.Time) (Entry, bool) {
	var next Entry
	found := false
	for _, program := range programs {
		if !program.Start.After(now) {
			continue
		}
		if !found || program.Start.Before(next.Start) {
			next = program
			found = true
		}
	}
	return next, found
}
