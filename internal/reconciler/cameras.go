package reconciler

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/traffic-entity-sync/internal/catalog"
	"github.com/couchcryptid/traffic-entity-sync/internal/config"
	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/couchcryptid/traffic-entity-sync/internal/registry"
	"github.com/jonboulle/clockwork"
)

// SyncCameraPresets reconciles weathercam camera entities for one service.
// The catalog is static, so unlike traffic messages this runs only at setup
// and after a config update: registered presets no longer selected are
// removed, newly selected presets found in the catalog are added. Selected
// presets missing from the catalog are logged and skipped.
func SyncCameraPresets(
	ctx context.Context,
	entryID, service string,
	selections []config.CameraSelection,
	cat catalog.Catalog,
	reg EntityRegistry,
	publisher EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) {
	type presetRef struct {
		cameraName string
		preset     domain.CameraPreset
	}

	expected := make(map[string]presetRef)
	for _, sel := range selections {
		station, ok := cat.Station(sel.CameraID)
		if !ok {
			logger.Warn("camera not in catalog, skipping", "camera_id", sel.CameraID)
			continue
		}
		for _, presetID := range sel.Presets {
			preset, ok := station.Preset(presetID)
			if !ok {
				logger.Warn("preset not in catalog, skipping",
					"camera_id", sel.CameraID, "preset_id", presetID)
				continue
			}
			expected[presetID] = presetRef{cameraName: station.Name, preset: preset}
		}
	}

	now := clock.Now()
	var events []domain.EntityEvent
	var added, removed int

	registered := make(map[string]struct{})
	for _, e := range reg.EntriesFor(entryID, domain.EntityDomainCamera) {
		presetID, ok := domain.PresetIDFromKey(entryID, e.UniqueID)
		if !ok {
			continue
		}
		if _, want := expected[presetID]; want {
			registered[e.UniqueID] = struct{}{}
			continue
		}
		if err := reg.Remove(e.UniqueID); err != nil {
			logger.Warn("failed to remove camera entity, skipping",
				"unique_id", e.UniqueID, "error", err)
			metrics.EntityOpErrors.WithLabelValues(service).Inc()
			continue
		}
		removed++
		metrics.EntityOps.WithLabelValues(service, "remove").Inc()
		events = append(events, domain.EntityEvent{
			Action:     domain.EntityRemoved,
			UniqueID:   e.UniqueID,
			EntityID:   e.EntityID,
			Domain:     domain.EntityDomainCamera,
			EntryID:    entryID,
			Service:    service,
			NaturalID:  presetID,
			OccurredAt: now,
		})
	}

	for presetID, ref := range expected {
		key := domain.CameraKey(entryID, presetID)
		if _, exists := registered[key]; exists {
			continue
		}
		name := ref.cameraName
		if ref.preset.PresentationName != "" {
			name += " - " + ref.preset.PresentationName
		}
		reg.Add(registry.Entity{
			UniqueID: key,
			EntityID: "camera.digitraffic_wc_" + presetID,
			Domain:   domain.EntityDomainCamera,
			EntryID:  entryID,
			Name:     name,
		})
		added++
		metrics.EntityOps.WithLabelValues(service, "add").Inc()
		events = append(events, domain.EntityEvent{
			Action:     domain.EntityAdded,
			UniqueID:   key,
			EntityID:   "camera.digitraffic_wc_" + presetID,
			Domain:     domain.EntityDomainCamera,
			EntryID:    entryID,
			Service:    service,
			NaturalID:  presetID,
			OccurredAt: now,
		})
	}

	if added == 0 && removed == 0 {
		return
	}

	logger.Info("reconciled weathercam entities",
		"service", service, "added", added, "removed", removed)
	metrics.RegisteredEntities.WithLabelValues(service, domain.EntityDomainCamera).
		Set(float64(len(reg.EntriesFor(entryID, domain.EntityDomainCamera))))

	if publisher != nil && len(events) > 0 {
		if err := publisher.PublishEntityEvents(ctx, events); err != nil {
			logger.Warn("failed to publish entity events", "count", len(events), "error", err)
			metrics.EventPublishErrors.Inc()
			return
		}
		metrics.EventsPublished.Add(float64(len(events)))
	}
}
