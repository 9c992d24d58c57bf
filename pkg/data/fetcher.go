// Package data provides fetching, in-memory storage and periodic refresh of the
// playlist and guide documents.
package data

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/savid/iptv-guide/config"
	"github.com/savid/iptv-guide/pkg/epg"
	"github.com/savid/iptv-guide/pkg/m3u"
	"github.com/savid/iptv-guide/pkg/metrics"
)

const (
	userAgent       = "iptv-guide/1.0"
	maxDocumentSize = 100 * 1024 * 1024
)

var (
	// ErrFetch wraps every failure to retrieve a document.
	ErrFetch = errors.New("fetch failed")
	// ErrUnexpectedStatus is returned when the HTTP response has an unexpected status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrDocumentTooLarge is returned when a document exceeds the size limit.
	ErrDocumentTooLarge = errors.New("document too large")
)

// StatusError carries the HTTP status code of a failed fetch.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.Code)
}

// Unwrap returns ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Snapshot is one parse-and-render cycle worth of data. It is not modified after
// it has been published to a Store.
type Snapshot struct {
	Playlist  *m3u.Playlist
	Guide     *epg.Guide
	FetchedAt time.Time
}

// Fetcher handles fetching M3U and EPG data from remote or local sources.
type Fetcher struct {
	config     *config.Config
	client     *http.Client
	fs         afero.Fs
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     *logrus.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFs sets the filesystem used for non-HTTP sources.
func WithFs(fs afero.Fs) Option {
	return func(f *Fetcher) {
		f.fs = fs
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(delay time.Duration) Option {
	return func(f *Fetcher) {
		f.retryDelay = delay
	}
}

// NewFetcher creates a new fetcher instance.
func NewFetcher(cfg *config.Config, logger *logrus.Logger, opts ...Option) *Fetcher {
	limit := rate.Inf
	if cfg.FetchRate > 0 {
		limit = rate.Limit(cfg.FetchRate)
	}

	f := &Fetcher{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		fs:         afero.NewOsFs(),
		limiter:    rate.NewLimiter(limit, 1),
		retryDelay: time.Second,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll fetches and parses the playlist and the guide concurrently. The guide
// index is restricted to the channels present in the playlist.
func (f *Fetcher) FetchAll(ctx context.Context) (*Snapshot, error) {
	started := time.Now()

	var (
		playlist    *m3u.Playlist
		guide       *epg.Guide
		playlistErr error
		guideErr    error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		playlist, playlistErr = f.FetchPlaylist(ctx)
	})
	wg.Go(func() {
		guide, guideErr = f.FetchGuide(ctx)
	})
	wg.Wait()

	if playlistErr != nil {
		return nil, fmt.Errorf("failed to fetch M3U: %w", playlistErr)
	}
	if guideErr != nil {
		return nil, fmt.Errorf("failed to fetch EPG: %w", guideErr)
	}

	ids := make([]string, 0, len(playlist.Channels))
	for _, channel := range playlist.Channels {
		ids = append(ids, channel.ID)
	}
	guide.Index = epg.Filter(guide.Index, ids)

	fetchedAt := time.Now()
	metrics.RecordGuide(guide.Programmes(), guide.Skipped)
	metrics.RecordRefresh(fetchedAt.Sub(started), fetchedAt)

	return &Snapshot{
		Playlist:  playlist,
		Guide:     guide,
		FetchedAt: fetchedAt,
	}, nil
}

// FetchPlaylist fetches and parses the configured M3U playlist.
func (f *Fetcher) FetchPlaylist(ctx context.Context) (*m3u.Playlist, error) {
	f.logger.WithField("source", redact(f.config.M3UURL)).Info("Fetching M3U data")

	raw, err := f.Fetch(ctx, f.config.M3UURL)
	if err != nil {
		metrics.RecordFetchError("playlist")
		return nil, err
	}

	playlist, err := m3u.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse M3U: %w", err)
	}

	metrics.RecordPlaylist(len(playlist.Channels), len(playlist.Skipped))
	f.logger.WithFields(logrus.Fields{
		"channels": len(playlist.Channels),
		"skipped":  len(playlist.Skipped),
	}).Info("Successfully fetched and parsed M3U")

	for _, directive := range playlist.Skipped {
		f.logger.WithField("directive", directive).Debug("Skipped playlist entry")
	}

	return playlist, nil
}

// FetchGuide fetches and parses the configured XMLTV guide.
func (f *Fetcher) FetchGuide(ctx context.Context) (*epg.Guide, error) {
	f.logger.WithField("source", redact(f.config.EPGURL)).Info("Fetching EPG data")

	raw, err := f.Fetch(ctx, f.config.EPGURL)
	if err != nil {
		metrics.RecordFetchError("guide")
		return nil, err
	}

	guide, err := epg.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EPG: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"channels":   len(guide.Index),
		"programmes": guide.Programmes(),
		"skipped":    guide.Skipped,
	}).Info("Successfully fetched and parsed EPG")

	return guide, nil
}

// Fetch returns the full, decompressed content of an http(s) URL or local path.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	var (
		body []byte
		err  error
	)

	if isHTTP(source) {
		body, err = f.fetchHTTPWithRetry(ctx, source)
	} else {
		body, err = f.fetchFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, redact(source), err)
	}

	return body, nil
}

func (f *Fetcher) fetchHTTPWithRetry(ctx context.Context, source string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			return f.fetchHTTP(ctx, source)
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.config.FetchRetries)+1),
		retry.Delay(f.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			f.logger.WithError(err).WithFields(logrus.Fields{
				"source":  redact(source),
				"attempt": n + 1,
			}).Warn("Fetch failed, retrying")
		}),
	)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip body: %w", err)
		}
		defer func() {
			_ = gz.Close()
		}()
		reader = gz
	}

	body, err := readLimited(reader)
	if err != nil {
		return nil, err
	}

	return gunzipIfCompressed(body)
}

func (f *Fetcher) fetchFile(source string) ([]byte, error) {
	path := strings.TrimPrefix(source, "file://")

	file, err := f.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	body, err := readLimited(file)
	if err != nil {
		return nil, err
	}

	return gunzipIfCompressed(body)
}

func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, ErrDocumentTooLarge
	}
	return body, nil
}

// gunzipIfCompressed handles .gz documents served without a Content-Encoding header.
func gunzipIfCompressed(body []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip document: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	return readLimited(gz)
}

// isRetryable retries network failures, 429 and 5xx. Other 4xx responses are final.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	return true
}

func isHTTP(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// redact drops credentials and query strings from a source before it is logged.
func redact(source string) string {
	if !isHTTP(source) {
		return source
	}
	parsed, err := url.Parse(source)
	if err != nil {
		return source
	}
	parsed.User = nil
	parsed.RawQuery = ""
	return parsed.String()
}
