// Package metrics defines the Prometheus collectors exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelsParsed tracks the number of channels in the current playlist
	ChannelsParsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_channels",
		Help: "Number of channels parsed from the playlist",
	})

	// PlaylistEntriesSkipped tracks directives that produced no channel in the last parse
	PlaylistEntriesSkipped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_playlist_entries_skipped",
		Help: "Number of playlist directives skipped in the last parse",
	})

	// ProgrammesIndexed tracks the number of programmes kept in the current guide index
	ProgrammesIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_programmes",
		Help: "Number of programmes in the guide index",
	})

	// GuideEntriesSkipped tracks programme elements without a channel in the last parse
	GuideEntriesSkipped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_guide_entries_skipped",
		Help: "Number of guide programmes skipped in the last parse",
	})

	// FetchErrors tracks failed document fetches by document kind
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_guide_fetch_errors_total",
		Help: "Total number of failed playlist or guide fetches",
	}, []string{"document"})

	// RefreshDuration tracks how long a full fetch-and-parse cycle takes
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_guide_refresh_duration_seconds",
		Help:    "Duration of playlist and guide refresh cycles",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// LastRefresh records the time of the last successful refresh
	LastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_last_refresh_timestamp_seconds",
		Help: "Unix time of the last successful refresh",
	})
)

// RecordPlaylist updates the playlist gauges after a parse
func RecordPlaylist(channels, skipped int) {
	ChannelsParsed.Set(float64(channels))
	PlaylistEntriesSkipped.Set(float64(skipped))
}

// RecordGuide updates the guide gauges after a parse
func RecordGuide(programmes, skipped int) {
	ProgrammesIndexed.Set(float64(programmes))
	GuideEntriesSkipped.Set(float64(skipped))
}

// RecordFetchError increments the error counter for a document kind
func RecordFetchError(document string) {
	FetchErrors.WithLabelValues(document).Inc()
}

// RecordRefresh observes a completed refresh cycle
func RecordRefresh(duration time.Duration, at time.Time) {
	RefreshDuration.Observe(duration.Seconds())
	LastRefresh.Set(float64(at.Unix()))
}
