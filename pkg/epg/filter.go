package epg

import (
	"github.com/sirupsen/logrus"
)

// Filter restricts the index to the given channel ids. Programme order within a
// channel is preserved; channels without guide data are simply absent.
func Filter(index Index, channelIDs []string) Index {
	wanted := make(map[string]bool, len(channelIDs))
	for _, id := range channelIDs {
		wanted[id] = true
	}

	filtered := make(Index, len(wanted))
	var unmatched []string
	for id := range wanted {
		programmes, ok := index[id]
		if !ok {
			unmatched = append(unmatched, id)
			continue
		}
		filtered[id] = programmes
	}

	if len(unmatched) > 0 {
		logrus.WithField("count", len(unmatched)).Warn("Playlist channels have no EPG match")
		logrus.Debug("Unmatched playlist channels:")
		for _, id := range unmatched {
			logrus.Debugf("  - %q", id)
		}
	}

	logrus.WithFields(logrus.Fields{
		"matched":   len(filtered),
		"available": len(index),
	}).Info("Matched channels between playlist and EPG")

	return filtered
}
