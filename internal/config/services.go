package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Service types.
const (
	ServiceTrafficMessages = "traffic_messages"
	ServiceWeathercam      = "weathercam"
)

// ServiceConfig defines one configured service: either a municipality-filtered
// traffic-message feed or a weathercam preset selection. Each service gets its
// own coordinator and entity namespace.
type ServiceConfig struct {
	Name           string            `yaml:"name" validate:"required"`
	Type           string            `yaml:"type" validate:"omitempty,oneof=traffic_messages weathercam"`
	Municipalities []string          `yaml:"municipalities"`
	SituationTypes []string          `yaml:"situationTypes" validate:"dive,oneof=TRAFFIC_ANNOUNCEMENT EXEMPTED_TRANSPORT WEIGHT_RESTRICTION ROAD_WORK"`
	Cameras        []CameraSelection `yaml:"cameras" validate:"dive"`
}

// CameraSelection picks presets of one weathercam station.
type CameraSelection struct {
	CameraID string   `yaml:"cameraId" validate:"required"`
	Presets  []string `yaml:"presets" validate:"min=1,dive,required"`
}

// servicesFile is the top-level YAML document.
type servicesFile struct {
	Services []ServiceConfig `yaml:"services"`
}

// LoadServices reads and validates the services YAML file. Service type
// defaults to traffic_messages; weathercam services must select at least one
// camera.
func LoadServices(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	var doc servicesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse services file: %w", err)
	}
	if len(doc.Services) == 0 {
		return nil, fmt.Errorf("services file %s defines no services", path)
	}

	v := validator.New()
	seen := make(map[string]struct{}, len(doc.Services))
	for i := range doc.Services {
		svc := &doc.Services[i]
		if svc.Type == "" {
			svc.Type = ServiceTrafficMessages
		}
		if err := v.Struct(svc); err != nil {
			return nil, fmt.Errorf("service %q: %w", svc.Name, err)
		}
		if svc.Type == ServiceWeathercam && len(svc.Cameras) == 0 {
			return nil, fmt.Errorf("service %q: weathercam service selects no cameras", svc.Name)
		}
		if _, dup := seen[svc.Name]; dup {
			return nil, fmt.Errorf("duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}

	return doc.Services, nil
}
