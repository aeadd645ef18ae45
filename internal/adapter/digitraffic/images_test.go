package digitraffic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImageClient(clock clockwork.Clock) *ImageClient {
	return NewImageClient(testUser, 5*time.Second, clock,
		discardLogger(), observability.NewMetricsForTesting())
}

func TestImageClient_FetchImage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUser, r.Header.Get("Digitraffic-User"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, err := w.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := testImageClient(clock)

	data, err := c.FetchImage(context.Background(), "C0150200", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	updated, ok := c.LastUpdated("C0150200")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), updated)
}

func TestImageClient_FetchImage_ForbiddenKeepsCachedBytes(t *testing.T) {
	var denied atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if denied.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("first-image"))
	}))
	defer srv.Close()

	c := testImageClient(clockwork.NewFakeClock())

	data, err := c.FetchImage(context.Background(), "C0150200", srv.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("first-image"), data)

	// Camera goes offline: the previous snapshot is served instead of an error.
	denied.Store(true)
	data, err = c.FetchImage(context.Background(), "C0150200", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("first-image"), data)
}

func TestImageClient_FetchImage_ForbiddenWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := testImageClient(clockwork.NewFakeClock())

	_, err := c.FetchImage(context.Background(), "C0150200", srv.URL)
	require.Error(t, err)

	var imgErr *ImageFetchError
	require.ErrorAs(t, err, &imgErr)
	assert.Equal(t, http.StatusForbidden, imgErr.StatusCode)
	assert.Equal(t, "C0150200", imgErr.PresetID)
}

func TestImageClient_FetchImage_TransportErrorKeepsCachedBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("snapshot"))
	}))

	c := testImageClient(clockwork.NewFakeClock())

	data, err := c.FetchImage(context.Background(), "C0150201", srv.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("snapshot"), data)

	srv.Close() // connection refused from now on

	data, err = c.FetchImage(context.Background(), "C0150201", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot"), data)
}

func TestImageClient_CachesArePerPreset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("a"))
	}))
	defer srv.Close()

	c := testImageClient(clockwork.NewFakeClock())

	_, err := c.FetchImage(context.Background(), "preset-a", srv.URL)
	require.NoError(t, err)

	_, ok := c.LastUpdated("preset-b")
	assert.False(t, ok)
}
