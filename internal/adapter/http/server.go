// Package http exposes the service API: entity and message state, camera
// snapshots, on-demand refresh, plus health, readiness, and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/traffic-entity-sync/internal/adapter/digitraffic"
	"github.com/couchcryptid/traffic-entity-sync/internal/coordinator"
	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/couchcryptid/traffic-entity-sync/internal/registry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CameraRef ties a selectable preset to its owning station for snapshot
// serving.
type CameraRef struct {
	CameraID   string
	CameraName string
	Preset     domain.CameraPreset
}

// Server exposes the service API over HTTP.
type Server struct {
	httpServer   *http.Server
	coordinators map[string]*coordinator.Coordinator // keyed by service name
	registry     *registry.Registry
	images       *digitraffic.ImageClient
	cameras      map[string]CameraRef // keyed by preset ID
	logger       *slog.Logger
}

// NewServer creates the API server. The images client and cameras map may be
// nil when no weathercam service is configured.
func NewServer(
	addr string,
	coordinators map[string]*coordinator.Coordinator,
	reg *registry.Registry,
	images *digitraffic.ImageClient,
	cameras map[string]CameraRef,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		coordinators: coordinators,
		registry:     reg,
		images:       images,
		cameras:      cameras,
		logger:       logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/services", s.handleListServices)
	mux.HandleFunc("GET /api/services/{name}", s.handleGetService)
	mux.HandleFunc("GET /api/services/{name}/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/services/{name}/refresh", s.handleRefresh)
	mux.HandleFunc("PUT /api/services/{name}/config", s.handleUpdateConfig)
	mux.HandleFunc("GET /api/entities", s.handleListEntities)
	mux.HandleFunc("GET /api/cameras", s.handleListCameras)
	mux.HandleFunc("GET /api/cameras/{presetID}/image", s.handleCameraImage)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports ready once every coordinator has completed at least one
// successful cycle.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	for name, c := range s.coordinators {
		if !c.Healthy() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  fmt.Sprintf("service %s has no data yet", name),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// serviceView is the API representation of one traffic-message service.
type serviceView struct {
	Name           string     `json:"name"`
	EntryID        string     `json:"entry_id"`
	Municipalities []string   `json:"municipalities"`
	SituationTypes []string   `json:"situation_types"`
	LastSuccess    *time.Time `json:"last_success,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	MessageCount   int        `json:"message_count"`
}

func (s *Server) serviceView(c *coordinator.Coordinator) serviceView {
	filter := c.Filter()
	v := serviceView{
		Name:           c.Name(),
		EntryID:        c.EntryID(),
		Municipalities: filter.Municipalities,
		SituationTypes: filter.SituationTypes,
		MessageCount:   len(c.Data()),
	}
	if ts, ok := c.LastSuccess(); ok {
		v.LastSuccess = &ts
	}
	if err := c.LastError(); err != nil {
		v.LastError = err.Error()
	}
	return v
}

func (s *Server) handleListServices(w http.ResponseWriter, _ *http.Request) {
	views := make([]serviceView, 0, len(s.coordinators))
	for _, c := range s.coordinators {
		views = append(views, s.serviceView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinators[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service")
		return
	}
	writeJSON(w, http.StatusOK, s.serviceView(c))
}

// messageView renders one traffic message with its derived presentation
// fields, matching the attributes a sensor entity would expose.
type messageView struct {
	SituationID        string          `json:"situation_id"`
	State              string          `json:"state"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Latitude           *float64        `json:"latitude,omitempty"`
	Longitude          *float64        `json:"longitude,omitempty"`
	SituationType      string          `json:"situation_type"`
	SituationTypeLabel string          `json:"situation_type_label"`
	ReleaseTime        *time.Time      `json:"release_time,omitempty"`
	UpdatedTime        *time.Time      `json:"updated_time,omitempty"`
	Municipalities     []string        `json:"municipalities,omitempty"`
	Road               *int            `json:"road,omitempty"`
	Direction          string          `json:"direction,omitempty"`
	GeoJSON            *geoJSONFeature `json:"geojson,omitempty"`
}

type geoJSONFeature struct {
	Type       string            `json:"type"`
	Geometry   *domain.Geometry  `json:"geometry"`
	Properties map[string]string `json:"properties"`
}

func newMessageView(m domain.TrafficMessage) messageView {
	v := messageView{
		SituationID:        m.SituationID,
		State:              "active",
		Title:              m.Title(),
		Description:        m.Description(),
		SituationType:      string(m.SituationType),
		SituationTypeLabel: m.SituationType.Label(),
		ReleaseTime:        m.ReleaseTime,
		UpdatedTime:        m.DataUpdatedTime,
		Municipalities:     m.Municipalities(),
		Direction:          m.Direction(),
	}
	if lat, lon, ok := m.Geometry.FirstPoint(); ok {
		v.Latitude = &lat
		v.Longitude = &lon
	}
	if road, ok := m.Road(); ok {
		v.Road = &road
	}
	if m.Geometry != nil {
		v.GeoJSON = &geoJSONFeature{
			Type:     "Feature",
			Geometry: m.Geometry,
			Properties: map[string]string{
				"title":          v.Title,
				"situation_id":   m.SituationID,
				"situation_type": string(m.SituationType),
			},
		}
	}
	return v
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinators[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service")
		return
	}
	messages := c.Data()
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, newMessageView(m))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinators[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service")
		return
	}
	if err := c.Refresh(r.Context()); err != nil {
		var failed *coordinator.UpdateFailed
		if errors.As(err, &failed) {
			writeError(w, http.StatusBadGateway, failed.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.serviceView(c))
}

// configUpdate carries optional filter replacements; absent fields are left
// unchanged.
type configUpdate struct {
	Municipalities *[]string `json:"municipalities"`
	SituationTypes *[]string `json:"situation_types"`
}

// handleUpdateConfig applies a filter update and then requests an immediate
// refresh, mirroring the options-update flow: UpdateConfig itself never
// refreshes.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinators[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service")
		return
	}

	var update configUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config update: "+err.Error())
		return
	}
	for _, st := range valuesOf(update.SituationTypes) {
		if domain.SituationType(st).Label() == "Unknown" {
			writeError(w, http.StatusBadRequest, "unknown situation type: "+st)
			return
		}
	}

	c.UpdateConfig(update.Municipalities, update.SituationTypes)

	if err := c.Refresh(r.Context()); err != nil {
		// Config is applied; the refresh failure surfaces as stale data.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.serviceView(c))
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entryID := r.URL.Query().Get("entry_id")
	entities := s.registry.All()
	if entryID != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if e.EntryID == entryID {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}
	writeJSON(w, http.StatusOK, entities)
}

// cameraView is the API representation of one selectable preset.
type cameraView struct {
	PresetID         string     `json:"preset_id"`
	CameraID         string     `json:"camera_id"`
	CameraName       string     `json:"camera_name"`
	PresentationName string     `json:"presentation_name,omitempty"`
	Direction        string     `json:"direction,omitempty"`
	ImageURL         string     `json:"image_url"`
	LastUpdated      *time.Time `json:"last_updated,omitempty"`
}

func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	views := make([]cameraView, 0, len(s.cameras))
	for presetID, ref := range s.cameras {
		v := cameraView{
			PresetID:         presetID,
			CameraID:         ref.CameraID,
			CameraName:       ref.CameraName,
			PresentationName: ref.Preset.PresentationName,
			Direction:        ref.Preset.DirectionCode,
			ImageURL:         ref.Preset.ImageURL,
		}
		if s.images != nil {
			if ts, ok := s.images.LastUpdated(presetID); ok {
				v.LastUpdated = &ts
			}
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCameraImage(w http.ResponseWriter, r *http.Request) {
	presetID := r.PathValue("presetID")
	ref, ok := s.cameras[presetID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown preset")
		return
	}

	data, err := s.images.FetchImage(r.Context(), presetID, ref.Preset.ImageURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // best-effort image response
}

func valuesOf(p *[]string) []string {
	if p == nil {
		return nil
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
