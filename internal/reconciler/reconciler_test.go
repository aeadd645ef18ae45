package reconciler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/couchcryptid/traffic-entity-sync/internal/registry"
)

// stubSource is a fixed-data stand-in for a coordinator.
type stubSource struct {
	name    string
	entryID string
	data    []domain.TrafficMessage
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) EntryID() string { return s.entryID }

func (s *stubSource) Data() []domain.TrafficMessage { return s.data }

// failingRegistry wraps the real registry but refuses to remove given keys.
type failingRegistry struct {
	*registry.Registry
	failKeys map[string]struct{}
}

func (r *failingRegistry) Remove(uniqueID string) error {
	if _, fail := r.failKeys[uniqueID]; fail {
		return errors.New("registry unavailable")
	}
	return r.Registry.Remove(uniqueID)
}

// capturingPublisher records published events and optionally fails.
type capturingPublisher struct {
	events []domain.EntityEvent
	err    error
}

func (p *capturingPublisher) PublishEntityEvents(_ context.Context, events []domain.EntityEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func message(situationID, title string) domain.TrafficMessage {
	return domain.TrafficMessage{
		SituationID:   situationID,
		SituationType: domain.SituationTrafficAnnouncement,
		Announcements: []domain.Announcement{{Title: title}},
	}
}

func testReconciler(t *testing.T, source *stubSource, reg EntityRegistry, publisher EventPublisher) *Reconciler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(source, reg, publisher, clockwork.NewFakeClock(), logger,
		observability.NewMetricsForTesting())
}

func uniqueIDs(entities []registry.Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.UniqueID)
	}
	return ids
}

func TestDiff(t *testing.T) {
	existing := map[string]struct{}{
		domain.MessageKey("entry-1", "GUID1"): {},
		domain.MessageKey("entry-1", "GUID2"): {},
	}
	messages := []domain.TrafficMessage{
		message("GUID2", "still active"),
		message("GUID3", "new"),
	}

	toAdd, toRemove := Diff("entry-1", messages, existing)

	require.Len(t, toAdd, 1)
	assert.Equal(t, "GUID3", toAdd[0].SituationID)
	assert.Equal(t, map[string]struct{}{
		domain.MessageKey("entry-1", "GUID1"): {},
	}, toRemove)
}

func TestDiff_Idempotent(t *testing.T) {
	messages := []domain.TrafficMessage{message("GUID1", "a"), message("GUID2", "b")}

	toAdd, toRemove := Diff("entry-1", messages, map[string]struct{}{})
	require.Len(t, toAdd, 2)
	require.Empty(t, toRemove)

	// Apply the diff, then diff again: nothing left to do.
	applied := make(map[string]struct{})
	for _, msg := range toAdd {
		applied[domain.MessageKey("entry-1", msg.SituationID)] = struct{}{}
	}
	toAdd, toRemove = Diff("entry-1", messages, applied)
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}

func TestReconciler_SyncAddsAndRemoves(t *testing.T) {
	reg := registry.New()
	reg.Add(registry.Entity{
		UniqueID: domain.MessageKey("entry-1", "GUID1"),
		EntityID: "sensor.digitraffic_tm_GUID1",
		Domain:   domain.EntityDomainSensor,
		EntryID:  "entry-1",
	})

	source := &stubSource{
		name:    "south-traffic",
		entryID: "entry-1",
		data:    []domain.TrafficMessage{message("GUID2", "Accident on ring road")},
	}
	publisher := &capturingPublisher{}
	rec := testReconciler(t, source, reg, publisher)

	rec.Sync(context.Background())

	entities := reg.EntriesFor("entry-1", domain.EntityDomainSensor)
	require.Len(t, entities, 1)
	assert.Equal(t, domain.MessageKey("entry-1", "GUID2"), entities[0].UniqueID)
	assert.Equal(t, "sensor.digitraffic_tm_GUID2", entities[0].EntityID)
	assert.Equal(t, "Accident on ring road", entities[0].Name)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, domain.EntityRemoved, publisher.events[0].Action)
	assert.Equal(t, "GUID1", publisher.events[0].NaturalID)
	assert.Equal(t, domain.EntityAdded, publisher.events[1].Action)
	assert.Equal(t, "GUID2", publisher.events[1].NaturalID)
	assert.Equal(t, "south-traffic", publisher.events[1].Service)
}

func TestReconciler_SyncIsIdempotent(t *testing.T) {
	reg := registry.New()
	source := &stubSource{
		name:    "south-traffic",
		entryID: "entry-1",
		data:    []domain.TrafficMessage{message("GUID1", "a"), message("GUID2", "b")},
	}
	publisher := &capturingPublisher{}
	rec := testReconciler(t, source, reg, publisher)

	rec.Sync(context.Background())
	first := uniqueIDs(reg.EntriesFor("entry-1", domain.EntityDomainSensor))
	require.Len(t, first, 2)
	require.Len(t, publisher.events, 2)

	// A second sync over unchanged data is a no-op and publishes nothing.
	rec.Sync(context.Background())
	assert.Equal(t, first, uniqueIDs(reg.EntriesFor("entry-1", domain.EntityDomainSensor)))
	assert.Len(t, publisher.events, 2)
}

func TestReconciler_SyncScopedToOwnEntry(t *testing.T) {
	reg := registry.New()
	foreign := registry.Entity{
		UniqueID: domain.MessageKey("entry-2", "GUID9"),
		Domain:   domain.EntityDomainSensor,
		EntryID:  "entry-2",
	}
	reg.Add(foreign)

	source := &stubSource{name: "south-traffic", entryID: "entry-1"}
	rec := testReconciler(t, source, reg, nil)

	rec.Sync(context.Background())

	// Another entry's entities are never touched.
	_, ok := reg.Get(foreign.UniqueID)
	assert.True(t, ok)
}

func TestReconciler_RemoveFailureSkipsEntity(t *testing.T) {
	inner := registry.New()
	stale1 := domain.MessageKey("entry-1", "GUID1")
	stale2 := domain.MessageKey("entry-1", "GUID2")
	inner.Add(registry.Entity{UniqueID: stale1, Domain: domain.EntityDomainSensor, EntryID: "entry-1"})
	inner.Add(registry.Entity{UniqueID: stale2, Domain: domain.EntityDomainSensor, EntryID: "entry-1"})

	reg := &failingRegistry{Registry: inner, failKeys: map[string]struct{}{stale1: {}}}
	source := &stubSource{name: "south-traffic", entryID: "entry-1"}
	publisher := &capturingPublisher{}
	rec := testReconciler(t, source, reg, publisher)

	rec.Sync(context.Background())

	// The failed removal is skipped; the other stale entity still goes.
	_, ok := inner.Get(stale1)
	assert.True(t, ok)
	_, ok = inner.Get(stale2)
	assert.False(t, ok)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, stale2, publisher.events[0].UniqueID)
}

func TestReconciler_PublisherFailureDoesNotAffectRegistry(t *testing.T) {
	reg := registry.New()
	source := &stubSource{
		name:    "south-traffic",
		entryID: "entry-1",
		data:    []domain.TrafficMessage{message("GUID1", "a")},
	}
	publisher := &capturingPublisher{err: errors.New("broker down")}
	rec := testReconciler(t, source, reg, publisher)

	rec.Sync(context.Background())

	assert.Len(t, reg.EntriesFor("entry-1", domain.EntityDomainSensor), 1)
}

func TestReconciler_NilPublisher(t *testing.T) {
	reg := registry.New()
	source := &stubSource{
		name:    "south-traffic",
		entryID: "entry-1",
		data:    []domain.TrafficMessage{message("GUID1", "a")},
	}
	rec := testReconciler(t, source, reg, nil)

	rec.Sync(context.Background())
	assert.Len(t, reg.EntriesFor("entry-1", domain.EntityDomainSensor), 1)
}
