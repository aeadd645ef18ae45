// Package catalog loads the static weathercam catalog produced by
// cmd/buildcatalog. The catalog maps camera IDs to station metadata and
// presets; it is loaded once at setup and never refreshed.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Catalog maps camera ID to station metadata. Read-only after Load.
type Catalog map[string]domain.CameraStation

// Load reads and validates the catalog JSON file.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat) == 0 {
		return nil, fmt.Errorf("catalog %s contains no cameras", path)
	}

	v := validator.New()
	for cameraID, station := range cat {
		if err := v.Struct(station); err != nil {
			return nil, fmt.Errorf("camera %s: %w", cameraID, err)
		}
	}
	return cat, nil
}

// Station looks up a camera station by ID.
func (c Catalog) Station(cameraID string) (domain.CameraStation, bool) {
	s, ok := c[cameraID]
	return s, ok
}

// Preset looks up one preset of one station.
func (c Catalog) Preset(cameraID, presetID string) (domain.CameraPreset, bool) {
	s, ok := c[cameraID]
	if !ok {
		return domain.CameraPreset{}, false
	}
	return s.Preset(presetID)
}
