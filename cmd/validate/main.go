// Command validate performs integrity checks across the service's static
// inputs: the services YAML and the weathercam catalog. It verifies that the
// catalog parses and validates, that every camera and preset selected by a
// weathercam service exists in the catalog, and that preset IDs are unique
// across stations.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -services services.yml \
//	  -catalog data/weathercam_catalog.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/traffic-entity-sync/internal/catalog"
	"github.com/couchcryptid/traffic-entity-sync/internal/config"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	servicesPath := flag.String("services", "services.yml", "path to the services YAML file")
	catalogPath := flag.String("catalog", "data/weathercam_catalog.json", "path to the weathercam catalog JSON")
	flag.Parse()

	if code := run(*servicesPath, *catalogPath); code != 0 {
		os.Exit(code)
	}
}

func run(servicesPath, catalogPath string) int {
	services, err := config.LoadServices(servicesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "services file invalid: %v\n", err)
		return 1
	}
	fmt.Printf("services: %d loaded from %s\n", len(services), servicesPath)

	needsCatalog := false
	for _, svc := range services {
		if svc.Type == config.ServiceWeathercam {
			needsCatalog = true
		}
	}
	if !needsCatalog {
		fmt.Println("no weathercam services configured, skipping catalog checks")
		return 0
	}

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog invalid: %v\n", err)
		return 1
	}
	fmt.Printf("catalog: %d cameras loaded from %s\n", len(cat), catalogPath)

	phases := []*phase{
		checkPresetUniqueness(cat),
		checkSelections(services, cat),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if failed {
		return 1
	}
	return 0
}

// checkPresetUniqueness verifies no preset ID appears under two stations,
// since presets key the snapshot API globally.
func checkPresetUniqueness(cat catalog.Catalog) *phase {
	p := &phase{name: "preset uniqueness"}
	seen := map[string]string{} // preset ID -> camera ID
	for cameraID, station := range cat {
		for _, preset := range station.Presets {
			if prev, dup := seen[preset.ID]; dup {
				p.errorf("preset %s appears under both %s and %s", preset.ID, prev, cameraID)
				continue
			}
			seen[preset.ID] = cameraID
		}
	}
	return p
}

// checkSelections verifies every selected camera and preset exists in the
// catalog.
func checkSelections(services []config.ServiceConfig, cat catalog.Catalog) *phase {
	p := &phase{name: "service selections"}
	for _, svc := range services {
		if svc.Type != config.ServiceWeathercam {
			continue
		}
		for _, sel := range svc.Cameras {
			station, ok := cat.Station(sel.CameraID)
			if !ok {
				p.errorf("service %s selects unknown camera %s", svc.Name, sel.CameraID)
				continue
			}
			for _, presetID := range sel.Presets {
				if _, ok := station.Preset(presetID); !ok {
					p.errorf("service %s selects unknown preset %s of camera %s",
						svc.Name, presetID, sel.CameraID)
				}
			}
		}
	}
	return p
}
