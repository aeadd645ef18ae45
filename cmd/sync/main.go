package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/traffic-entity-sync/internal/adapter/digitraffic"
	httpadapter "github.com/couchcryptid/traffic-entity-sync/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/traffic-entity-sync/internal/adapter/kafka"
	"github.com/couchcryptid/traffic-entity-sync/internal/catalog"
	"github.com/couchcryptid/traffic-entity-sync/internal/config"
	"github.com/couchcryptid/traffic-entity-sync/internal/coordinator"
	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/couchcryptid/traffic-entity-sync/internal/observability"
	"github.com/couchcryptid/traffic-entity-sync/internal/reconciler"
	"github.com/couchcryptid/traffic-entity-sync/internal/registry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	services, err := config.LoadServices(cfg.ServicesFile)
	if err != nil {
		slog.Error("failed to load services", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// One transport shared across all services to pool connections. The
	// timeout bounds a poll cycle so a hung request cannot block the ticker.
	httpClient := &nethttp.Client{Timeout: cfg.FetchTimeout}
	client := digitraffic.NewClient(cfg.APIBaseURL, cfg.DigitrafficUser, httpClient, logger)
	reg := registry.New()

	// Entity-event sink (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher reconciler.EventPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaWriter
		logger.Info("entity event sink enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("entity event sink disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The catalog and image client exist only when a weathercam service is
	// configured.
	var cat catalog.Catalog
	var images *digitraffic.ImageClient
	cameras := make(map[string]httpadapter.CameraRef)
	if hasWeathercamService(services) {
		cat, err = catalog.Load(cfg.CatalogFile)
		if err != nil {
			logger.Error("failed to load weathercam catalog", "error", err)
			os.Exit(1)
		}
		images = digitraffic.NewImageClient(cfg.DigitrafficUser, cfg.ImageTimeout, clock, logger, metrics)
	}

	coordinators := make(map[string]*coordinator.Coordinator)
	var wg sync.WaitGroup

	for _, svc := range services {
		entryID := uuid.NewString()

		switch svc.Type {
		case config.ServiceWeathercam:
			reconciler.SyncCameraPresets(ctx, entryID, svc.Name, svc.Cameras, cat,
				reg, publisher, clock, logger, metrics)
			collectCameraRefs(cat, svc.Cameras, cameras)

		default:
			filter := domain.FilterConfig{
				Municipalities: svc.Municipalities,
				SituationTypes: svc.SituationTypes,
			}
			coord := coordinator.New(svc.Name, entryID, client, filter,
				cfg.PollInterval, clock, logger, metrics)

			rec := reconciler.New(coord, reg, publisher, clock, logger, metrics)
			coord.AddListener(func() { rec.Sync(ctx) })

			coordinators[svc.Name] = coord
			wg.Add(1)
			go func() {
				defer wg.Done()
				coord.Run(ctx)
			}()
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, coordinators, reg, images, cameras, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func hasWeathercamService(services []config.ServiceConfig) bool {
	for _, svc := range services {
		if svc.Type == config.ServiceWeathercam {
			return true
		}
	}
	return false
}

// collectCameraRefs resolves a service's preset selections against the
// catalog for the snapshot API. Unknown selections were already logged during
// reconciliation. The map is keyed by preset ID alone: preset IDs are unique
// across stations (cmd/validate enforces this), so a ref holds only catalog
// data and two services selecting the same preset write identical values.
func collectCameraRefs(cat catalog.Catalog, selections []config.CameraSelection, out map[string]httpadapter.CameraRef) {
	for _, sel := range selections {
		station, ok := cat.Station(sel.CameraID)
		if !ok {
			continue
		}
		for _, presetID := range sel.Presets {
			preset, ok := station.Preset(presetID)
			if !ok {
				continue
			}
			out[presetID] = httpadapter.CameraRef{
				CameraID:   sel.CameraID,
				CameraName: station.Name,
				Preset:     preset,
			}
		}
	}
}
