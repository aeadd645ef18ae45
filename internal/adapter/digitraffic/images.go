package digitraffic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ImageFetchError is a per-image request failure with no cached fallback.
type ImageFetchError struct {
	PresetID   string
	StatusCode int
	Err        error
}

func (e *ImageFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weathercam image %s: status %d", e.PresetID, e.StatusCode)
	}
	return fmt.Sprintf("weathercam image %s: %v", e.PresetID, e.Err)
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

// cachedImage is the last successfully fetched snapshot for one preset.
type cachedImage struct {
	data      []byte
	fetchedAt time.Time
}

// ImageClient fetches weathercam preset snapshots on demand. Failures are
// non-fatal: the last successfully fetched bytes are returned instead so
// entity state never goes blank on transient errors.
type ImageClient struct {
	user       string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex
	cache map[string]cachedImage // keyed by preset ID
}

// NewImageClient creates a weathercam image client with its own short request
// timeout, separate from the message-fetch client.
func NewImageClient(user string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *ImageClient {
	return &ImageClient{
		user:       user,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		cache:      make(map[string]cachedImage),
	}
}

// FetchImage returns the current snapshot for a preset. On any failure it
// falls back to the previously fetched bytes; an *ImageFetchError is returned
// only when no fallback exists. A 403 means the camera is offline or not
// publicly accessible and is logged at debug, other failures at warn.
func (c *ImageClient) FetchImage(ctx context.Context, presetID, imageURL string) ([]byte, error) {
	data, err := c.fetch(ctx, presetID, imageURL)
	if err == nil {
		c.mu.Lock()
		c.cache[presetID] = cachedImage{data: data, fetchedAt: c.clock.Now()}
		c.mu.Unlock()
		c.metrics.ImageFetches.WithLabelValues("success").Inc()
		return data, nil
	}

	c.mu.Lock()
	cached, ok := c.cache[presetID]
	c.mu.Unlock()
	if ok {
		c.metrics.ImageFetches.WithLabelValues("stale").Inc()
		return cached.data, nil
	}
	return nil, err
}

// LastUpdated reports when the preset's cached snapshot was fetched.
func (c *ImageClient) LastUpdated(presetID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.cache[presetID]
	return cached.fetchedAt, ok
}

func (c *ImageClient) fetch(ctx context.Context, presetID, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &ImageFetchError{PresetID: presetID, Err: err}
	}
	req.Header.Set("Digitraffic-User", c.user)
	req.Header.Set("Accept", "image/jpeg,image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("weathercam image fetch failed", "preset_id", presetID, "error", err)
		c.metrics.ImageFetches.WithLabelValues("error").Inc()
		return nil, &ImageFetchError{PresetID: presetID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			c.metrics.ImageFetches.WithLabelValues("error").Inc()
			return nil, &ImageFetchError{PresetID: presetID, Err: err}
		}
		return data, nil
	case resp.StatusCode == http.StatusForbidden:
		// Camera offline or not publicly accessible.
		c.logger.Debug("weathercam image access denied", "preset_id", presetID, "url", imageURL)
		c.metrics.ImageFetches.WithLabelValues("denied").Inc()
		return nil, &ImageFetchError{PresetID: presetID, StatusCode: resp.StatusCode}
	default:
		c.logger.Warn("weathercam image fetch failed",
			"preset_id", presetID, "url", imageURL, "status", resp.StatusCode)
		c.metrics.ImageFetches.WithLabelValues("error").Inc()
		return nil, &ImageFetchError{PresetID: presetID, StatusCode: resp.StatusCode}
	}
}
