package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	snapshots []*Snapshot
	errs      []error
}

func (f *fakeFetcher) FetchAll(_ context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.snapshots) {
		return f.snapshots[i], nil
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	store := NewStore()
	snapshot := testSnapshot(time.Now(), "a", "b")
	refresher := NewRefresher(store, &fakeFetcher{snapshots: []*Snapshot{snapshot}}, time.Minute, newTestLogger())

	require.NoError(t, refresher.Refresh(context.Background()))

	got, ok := store.Get()
	require.True(t, ok)
	assert.Same(t, snapshot, got)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	store := NewStore()
	previous := testSnapshot(time.Now(), "a")
	store.Set(previous)

	fetcher := &fakeFetcher{
		snapshots: []*Snapshot{testSnapshot(time.Now(), "b")},
		errs:      []error{errUpstream},
	}
	refresher := NewRefresher(store, fetcher, time.Minute, newTestLogger())

	err := refresher.Refresh(context.Background())
	require.ErrorIs(t, err, errUpstream)

	got, ok := store.Get()
	require.True(t, ok)
	assert.Same(t, previous, got)
}

func TestScheduleNextRefresh(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		err      error
		want     time.Duration
	}{
		{name: "success uses interval", interval: 30 * time.Minute, want: 30 * time.Minute},
		{name: "failure halves interval", interval: 4 * time.Minute, err: errUpstream, want: 2 * time.Minute},
		{name: "failure backoff is capped", interval: 30 * time.Minute, err: errUpstream, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := NewRefresher(NewStore(), &fakeFetcher{}, tt.interval, newTestLogger())
			assert.Equal(t, tt.want, refresher.scheduleNextRefresh(tt.err))
		})
	}
}

func TestStartRefreshesUntilCancelled(t *testing.T) {
	store := NewStore()
	fetcher := &fakeFetcher{
		snapshots: []*Snapshot{nil, testSnapshot(time.Now(), "a")},
		errs:      []error{errUpstream},
	}
	refresher := NewRefresher(store, fetcher, 20*time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return fetcher.Calls() >= 3 && store.HasData()
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Refresher did not stop after cancellation")
	}
}
