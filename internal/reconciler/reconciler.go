// Package reconciler diffs a coordinator's published data set against the
// entity registry and issues add/remove operations so the registered entities
// always mirror the most recent successful fetch.
package reconciler

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/couchcryptid/traffic-entity-sync/internal/registry"
	"github.com/jonboulle/clockwork"
)

// DataSource provides the current published message set of one service.
type DataSource interface {
	Name() string
	EntryID() string
	Data() []domain.TrafficMessage
}

// EntityRegistry is the collaborator holding entity membership.
type EntityRegistry interface {
	EntriesFor(entryID, domain string) []registry.Entity
	Add(e registry.Entity)
	Remove(uniqueID string) error
}

// EventPublisher publishes entity lifecycle events to the sink.
type EventPublisher interface {
	PublishEntityEvents(ctx context.Context, events []domain.EntityEvent) error
}

// Diff computes the entity operations needed to mirror the current message
// set. Keys are namespaced by entryID. Idempotent: applying the diff and
// diffing again yields empty results.
func Diff(entryID string, messages []domain.TrafficMessage, existingKeys map[string]struct{}) (toAdd []domain.TrafficMessage, toRemove map[string]struct{}) {
	currentKeys := make(map[string]struct{}, len(messages))
	for _, msg := range messages {
		key := domain.MessageKey(entryID, msg.SituationID)
		currentKeys[key] = struct{}{}
		if _, exists := existingKeys[key]; !exists {
			toAdd = append(toAdd, msg)
		}
	}

	toRemove = make(map[string]struct{})
	for key := range existingKeys {
		if _, active := currentKeys[key]; !active {
			toRemove[key] = struct{}{}
		}
	}
	return toAdd, toRemove
}

// Reconciler applies diffs for one service. Registered as a coordinator
// listener so it runs after every publish, and invoked once at setup.
type Reconciler struct {
	source    DataSource
	registry  EntityRegistry
	publisher EventPublisher // nil disables event publishing
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a reconciler. Pass a nil publisher when the Kafka sink is
// disabled.
func New(source DataSource, reg EntityRegistry, publisher EventPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		source:    source,
		registry:  reg,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("service", source.Name()),
		metrics:   metrics,
	}
}

// Sync diffs the coordinator's data against the registry and applies the
// result. Removals happen first; entities present in both sets are left
// untouched since their state is read live from the coordinator. A failed
// removal is logged and skipped, never retried, so one bad entry cannot wedge
// the loop.
func (r *Reconciler) Sync(ctx context.Context) {
	entryID := r.source.EntryID()
	service := r.source.Name()
	messages := r.source.Data()

	existing := r.registry.EntriesFor(entryID, domain.EntityDomainSensor)
	existingKeys := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		if _, ok := domain.SituationIDFromKey(entryID, e.UniqueID); ok {
			existingKeys[e.UniqueID] = struct{}{}
		}
	}

	toAdd, toRemove := Diff(entryID, messages, existingKeys)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return
	}

	events := make([]domain.EntityEvent, 0, len(toAdd)+len(toRemove))
	now := r.clock.Now()

	for key := range toRemove {
		situationID, _ := domain.SituationIDFromKey(entryID, key)
		if err := r.registry.Remove(key); err != nil {
			r.logger.Warn("failed to remove stale entity, skipping",
				"unique_id", key, "error", err)
			r.metrics.EntityOpErrors.WithLabelValues(service).Inc()
			continue
		}
		r.logger.Debug("removed inactive traffic message entity",
			"situation_id", situationID)
		r.metrics.EntityOps.WithLabelValues(service, "remove").Inc()
		events = append(events, domain.EntityEvent{
			Action:     domain.EntityRemoved,
			UniqueID:   key,
			EntityID:   sensorEntityID(situationID),
			Domain:     domain.EntityDomainSensor,
			EntryID:    entryID,
			Service:    service,
			NaturalID:  situationID,
			OccurredAt: now,
		})
	}

	for _, msg := range toAdd {
		key := domain.MessageKey(entryID, msg.SituationID)
		r.registry.Add(registry.Entity{
			UniqueID: key,
			EntityID: sensorEntityID(msg.SituationID),
			Domain:   domain.EntityDomainSensor,
			EntryID:  entryID,
			Name:     msg.Title(),
		})
		r.metrics.EntityOps.WithLabelValues(service, "add").Inc()
		events = append(events, domain.EntityEvent{
			Action:     domain.EntityAdded,
			UniqueID:   key,
			EntityID:   sensorEntityID(msg.SituationID),
			Domain:     domain.EntityDomainSensor,
			EntryID:    entryID,
			Service:    service,
			NaturalID:  msg.SituationID,
			OccurredAt: now,
		})
	}

	r.logger.Info("reconciled traffic message entities",
		"added", len(toAdd), "removed", len(toRemove))
	r.metrics.RegisteredEntities.WithLabelValues(service, domain.EntityDomainSensor).
		Set(float64(len(r.registry.EntriesFor(entryID, domain.EntityDomainSensor))))

	r.publish(ctx, events)
}

func (r *Reconciler) publish(ctx context.Context, events []domain.EntityEvent) {
	if r.publisher == nil || len(events) == 0 {
		return
	}
	if err := r.publisher.PublishEntityEvents(ctx, events); err != nil {
		r.logger.Warn("failed to publish entity events", "count", len(events), "error", err)
		r.metrics.EventPublishErrors.Inc()
		return
	}
	r.metrics.EventsPublished.Add(float64(len(events)))
}

func sensorEntityID(situationID string) string {
	return "sensor.digitraffic_tm_" + situationID
}
