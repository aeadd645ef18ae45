// Package coordinator owns the polling cadence for one configured service:
// fetch, filter by municipality, publish wholesale, notify listeners.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the currently active traffic messages.
type Fetcher interface {
	FetchActiveMessages(ctx context.Context, situationTypes []string) ([]domain.TrafficMessage, error)
}

// UpdateFailed wraps a fetch error for one failed poll cycle. The coordinator
// keeps its last-known-good data; listeners see "stale but available".
type UpdateFailed struct {
	Service string
	Err     error
}

func (e *UpdateFailed) Error() string {
	return fmt.Sprintf("update failed for %s: %v", e.Service, e.Err)
}

func (e *UpdateFailed) Unwrap() error { return e.Err }

// Listener is notified synchronously after every poll cycle, successful or not.
type Listener func()

// Coordinator polls the traffic-message API on a fixed interval for one
// service. Cycles are sequential: a new cycle starts only after the previous
// one completed or timed out.
type Coordinator struct {
	name     string
	entryID  string
	fetcher  Fetcher
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu             sync.RWMutex
	municipalities []string
	situationTypes []string
	data           []domain.TrafficMessage
	hasData        bool
	lastSuccess    time.Time
	lastErr        error

	listenerMu sync.Mutex
	listeners  []Listener

	// refreshMu serializes cycles so a manual refresh never overlaps a tick.
	refreshMu sync.Mutex
}

// New creates a coordinator for one service. The entry ID namespaces the
// service's entity keys.
func New(
	name, entryID string,
	fetcher Fetcher,
	filter domain.FilterConfig,
	interval time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		name:           name,
		entryID:        entryID,
		fetcher:        fetcher,
		interval:       interval,
		clock:          clock,
		logger:         logger.With("service", name),
		metrics:        metrics,
		municipalities: slices.Clone(filter.Municipalities),
		situationTypes: slices.Clone(filter.SituationTypes),
	}
}

// Name returns the service name.
func (c *Coordinator) Name() string { return c.name }

// EntryID returns the config entry ID owning this service's entities.
func (c *Coordinator) EntryID() string { return c.entryID }

// AddListener registers a callback invoked synchronously after each cycle.
func (c *Coordinator) AddListener(fn Listener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Run polls on the configured interval until the context is cancelled.
// The first cycle runs immediately.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("coordinator started", "interval", c.interval)
	c.metrics.CoordinatorUp.WithLabelValues(c.name).Set(1)
	defer c.metrics.CoordinatorUp.WithLabelValues(c.name).Set(0)

	if err := c.Refresh(ctx); err != nil && ctx.Err() != nil {
		return
	}

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			// Failures degrade to stale data and are logged inside Refresh;
			// the next poll happens at the normal interval, no backoff.
			_ = c.Refresh(ctx)
		}
	}
}

// Refresh runs one fetch-filter-publish cycle. On failure the previous data
// is kept and an *UpdateFailed is returned. Listeners are notified either way.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	municipalities := c.municipalities
	situationTypes := c.situationTypes
	c.mu.RUnlock()

	start := time.Now()
	messages, err := c.fetcher.FetchActiveMessages(ctx, situationTypes)
	if err != nil {
		failed := &UpdateFailed{Service: c.name, Err: err}

		c.mu.Lock()
		c.lastErr = failed
		c.mu.Unlock()

		c.metrics.PollsTotal.WithLabelValues(c.name, "failure").Inc()
		c.metrics.PollDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
		c.logger.Error("poll cycle failed, keeping last data", "error", err)
		c.notify()
		return failed
	}

	filtered := domain.FilterByMunicipality(messages, municipalities)

	c.mu.Lock()
	c.data = filtered
	c.hasData = true
	c.lastSuccess = c.clock.Now()
	c.lastErr = nil
	c.mu.Unlock()

	c.metrics.PollsTotal.WithLabelValues(c.name, "success").Inc()
	c.metrics.PollDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	c.metrics.ActiveMessages.WithLabelValues(c.name).Set(float64(len(filtered)))
	c.logger.Debug("poll cycle complete",
		"fetched", len(messages),
		"published", len(filtered),
	)

	c.notify()
	return nil
}

// UpdateConfig atomically replaces whichever filter fields are non-nil.
// It does not trigger a refresh; the caller requests one explicitly.
func (c *Coordinator) UpdateConfig(municipalities, situationTypes *[]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if municipalities != nil {
		c.municipalities = slices.Clone(*municipalities)
	}
	if situationTypes != nil {
		c.situationTypes = slices.Clone(*situationTypes)
	}
}

// Filter returns the current filter configuration.
func (c *Coordinator) Filter() domain.FilterConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.FilterConfig{
		Municipalities: slices.Clone(c.municipalities),
		SituationTypes: slices.Clone(c.situationTypes),
	}
}

// Data returns the messages from the most recent successful cycle.
func (c *Coordinator) Data() []domain.TrafficMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data)
}

// Message looks up a published message by situation ID.
func (c *Coordinator) Message(situationID string) (domain.TrafficMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.data {
		if m.SituationID == situationID {
			return m, true
		}
	}
	return domain.TrafficMessage{}, false
}

// LastSuccess returns the timestamp of the last successful cycle.
func (c *Coordinator) LastSuccess() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess, c.hasData
}

// LastError returns the most recent cycle's *UpdateFailed, or nil after a
// successful cycle.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Healthy reports whether at least one cycle has succeeded.
func (c *Coordinator) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasData
}

func (c *Coordinator) notify() {
	c.listenerMu.Lock()
	listeners := slices.Clone(c.listeners)
	c.listenerMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
