// Command buildcatalog fetches the weathercam station list and per-station
// details from the Digitraffic API and writes the static catalog JSON used by
// the sync service. Preprocessing the catalog offline avoids hundreds of API
// calls at service startup.
//
// Usage:
//
//	go run ./cmd/buildcatalog \
//	  -out data/weathercam_catalog.json \
//	  -raw-out data/weathercam_raw.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/traffic-entity-sync/internal/config"
	"github.com/couchcryptid/traffic-entity-sync/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the catalog JSON")
	rawOut := flag.String("raw-out", "", "optional output path for raw station responses")
	baseURL := flag.String("base-url", config.DefaultBaseURL, "Digitraffic API base URL")
	user := flag.String("user", "couchcryptid/traffic-entity-sync", "Digitraffic-User header value")
	delay := flag.Duration("delay", 200*time.Millisecond, "delay between per-station requests")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	f := &fetcher{
		baseURL:    *baseURL,
		user:       *user,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	stations, err := f.stationList()
	if err != nil {
		return fmt.Errorf("fetching station list: %w", err)
	}
	log.Printf("processing %d weathercams", len(stations))

	catalog := make(map[string]domain.CameraStation, len(stations))
	raw := make(map[string]json.RawMessage, len(stations))
	var failed []string

	for i, st := range stations {
		log.Printf("[%d/%d] fetching details for %s (%s)", i+1, len(stations), st.ID, st.Properties.Name)

		details, rawBody, err := f.stationDetails(st.ID)
		if err != nil {
			log.Printf("  failed: %v", err)
			failed = append(failed, st.ID)
			continue
		}

		catalog[st.ID] = details
		raw[st.ID] = rawBody

		// Be polite to the API.
		time.Sleep(*delay)
	}

	if len(failed) > 0 {
		log.Printf("warning: failed to fetch %d cameras: %v", len(failed), failed)
	}

	if err := writeJSON(*out, catalog); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	log.Printf("wrote catalog: %s", *out)

	if *rawOut != "" {
		if err := writeJSON(*rawOut, raw); err != nil {
			return fmt.Errorf("writing raw data: %w", err)
		}
		log.Printf("wrote raw data: %s", *rawOut)
	}

	printStats(catalog)
	return nil
}

type fetcher struct {
	baseURL    string
	user       string
	httpClient *http.Client
}

// stationListItem is one feature from the station-list endpoint.
type stationListItem struct {
	ID         string `json:"id"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

func (f *fetcher) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Digitraffic-User", f.user)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

func (f *fetcher) stationList() ([]stationListItem, error) {
	body, err := f.get("/api/weathercam/v1/stations?lastUpdated=false")
	if err != nil {
		return nil, err
	}
	var doc struct {
		Features []stationListItem `json:"features"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse station list: %w", err)
	}
	return doc.Features, nil
}

// stationDetail mirrors the per-station response, keeping only what the
// catalog needs. Presets not in the public collection are dropped.
type stationDetail struct {
	Properties struct {
		Name         string `json:"name"`
		Municipality string `json:"municipality"`
		Presets      []struct {
			ID               string `json:"id"`
			PresentationName string `json:"presentationName"`
			ImageURL         string `json:"imageUrl"`
			DirectionCode    string `json:"directionCode"`
			InCollection     bool   `json:"inCollection"`
		} `json:"presets"`
		Names                   map[string]string `json:"names"`
		NearestWeatherStationID *int              `json:"nearestWeatherStationId"`
	} `json:"properties"`
}

func (f *fetcher) stationDetails(cameraID string) (domain.CameraStation, json.RawMessage, error) {
	body, err := f.get("/api/weathercam/v1/stations/" + cameraID)
	if err != nil {
		return domain.CameraStation{}, nil, err
	}

	var detail stationDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return domain.CameraStation{}, nil, fmt.Errorf("parse station details: %w", err)
	}

	station := domain.CameraStation{
		Name:                    detail.Properties.Name,
		Municipality:            detail.Properties.Municipality,
		Names:                   detail.Properties.Names,
		NearestWeatherStationID: detail.Properties.NearestWeatherStationID,
	}
	for _, p := range detail.Properties.Presets {
		if !p.InCollection {
			continue
		}
		station.Presets = append(station.Presets, domain.CameraPreset{
			ID:               p.ID,
			PresentationName: p.PresentationName,
			ImageURL:         p.ImageURL,
			DirectionCode:    p.DirectionCode,
		})
	}
	return station, body, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(catalog map[string]domain.CameraStation) {
	presetTotal := 0
	byMunicipality := map[string]int{}
	for _, station := range catalog {
		presetTotal += len(station.Presets)
		byMunicipality[station.Municipality]++
	}

	munis := make([]string, 0, len(byMunicipality))
	for m := range byMunicipality {
		munis = append(munis, m)
	}
	sort.Strings(munis)

	log.Printf("cameras: %d, presets: %d, municipalities: %d",
		len(catalog), presetTotal, len(munis))
	for _, m := range munis {
		log.Printf("  %s: %d", m, byMunicipality[m])
	}
}
