package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPlaylist(t *testing.T) {
	RecordPlaylist(12, 3)

	assert.Equal(t, 12.0, testutil.ToFloat64(ChannelsParsed))
	assert.Equal(t, 3.0, testutil.ToFloat64(PlaylistEntriesSkipped))
}

func TestRecordGuide(t *testing.T) {
	RecordGuide(400, 2)

	assert.Equal(t, 400.0, testutil.ToFloat64(ProgrammesIndexed))
	assert.Equal(t, 2.0, testutil.ToFloat64(GuideEntriesSkipped))
}

func TestRecordFetchError(t *testing.T) {
	before := testutil.ToFloat64(FetchErrors.WithLabelValues("guide"))

	RecordFetchError("guide")
	RecordFetchError("guide")

	assert.Equal(t, before+2, testutil.ToFloat64(FetchErrors.WithLabelValues("guide")))
}

func TestRecordRefresh(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	RecordRefresh(1500*time.Millisecond, at)

	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(LastRefresh))
}
