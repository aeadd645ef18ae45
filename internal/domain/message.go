package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SituationType classifies a traffic message.
type SituationType string

const (
	SituationTrafficAnnouncement SituationType = "TRAFFIC_ANNOUNCEMENT"
	SituationExemptedTransport   SituationType = "EXEMPTED_TRANSPORT"
	SituationWeightRestriction   SituationType = "WEIGHT_RESTRICTION"
	SituationRoadWork            SituationType = "ROAD_WORK"
)

var situationLabels = map[SituationType]string{
	SituationTrafficAnnouncement: "Traffic Announcement",
	SituationExemptedTransport:   "Exempted Transport",
	SituationWeightRestriction:   "Weight Restriction",
	SituationRoadWork:            "Road Work",
}

// Label returns the human-readable name for the situation type,
// or "Unknown" for values outside the known enum.
func (s SituationType) Label() string {
	if label, ok := situationLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// SituationTypes lists every known situation type in display order.
func SituationTypes() []SituationType {
	return []SituationType{
		SituationTrafficAnnouncement,
		SituationExemptedTransport,
		SituationWeightRestriction,
		SituationRoadWork,
	}
}

// FeatureCollection is the top-level GeoJSON document returned by the
// traffic-message endpoint.
type FeatureCollection struct {
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON feature wrapping a traffic situation.
type Feature struct {
	Geometry   *Geometry         `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// FeatureProperties holds the situation payload of a feature.
type FeatureProperties struct {
	SituationID     string         `json:"situationId"`
	SituationType   SituationType  `json:"situationType"`
	ReleaseTime     *time.Time     `json:"releaseTime"`
	DataUpdatedTime *time.Time     `json:"dataUpdatedTime"`
	Announcements   []Announcement `json:"announcements"`
}

// Geometry is a GeoJSON geometry. Coordinates stay raw because the shape
// depends on Type (Point vs LineString).
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// FirstPoint returns the first coordinate pair in lat/lon order.
// Returns ok=false when the geometry is absent or malformed.
func (g *Geometry) FirstPoint() (lat, lon float64, ok bool) {
	if g == nil || len(g.Coordinates) == 0 {
		return 0, 0, false
	}

	// Point: [lon, lat]
	var point []float64
	if err := json.Unmarshal(g.Coordinates, &point); err == nil {
		if len(point) < 2 {
			return 0, 0, false
		}
		return point[1], point[0], true
	}

	// LineString: [[lon, lat], ...]
	var line [][]float64
	if err := json.Unmarshal(g.Coordinates, &line); err == nil {
		if len(line) == 0 || len(line[0]) < 2 {
			return 0, 0, false
		}
		return line[0][1], line[0][0], true
	}

	return 0, 0, false
}

// Announcement is one announcement attached to a situation.
type Announcement struct {
	Title           string                `json:"title"`
	Comment         string                `json:"comment"`
	LocationDetails *LocationDetails      `json:"locationDetails"`
	Features        []AnnouncementFeature `json:"features"`
}

// AnnouncementFeature is a named attribute of an announcement,
// e.g. "black ice" or "lane closed".
type AnnouncementFeature struct {
	Name string `json:"name"`
}

// LocationDetails wraps the optional road-address location of an announcement.
type LocationDetails struct {
	RoadAddressLocation *RoadAddressLocation `json:"roadAddressLocation"`
}

// RoadAddressLocation pins an announcement to a road segment.
type RoadAddressLocation struct {
	PrimaryPoint   *RoadPoint `json:"primaryPoint"`
	SecondaryPoint *RoadPoint `json:"secondaryPoint"`
	Direction      string     `json:"direction"`
}

// RoadPoint is one end of a road-address location.
type RoadPoint struct {
	Municipality string `json:"municipality"`
	RoadNumber   *int   `json:"roadNumber"`
}

// TrafficMessage is one active traffic situation. Immutable per poll cycle;
// each successful fetch replaces the previous set wholesale.
type TrafficMessage struct {
	SituationID     string
	SituationType   SituationType
	Geometry        *Geometry
	Announcements   []Announcement
	ReleaseTime     *time.Time
	DataUpdatedTime *time.Time
}

// ParseFeatureCollection decodes the traffic-message API response into
// TrafficMessages. Features without a situation ID are dropped since they
// cannot be keyed for reconciliation.
func ParseFeatureCollection(data []byte) ([]TrafficMessage, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}

	messages := make([]TrafficMessage, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Properties.SituationID == "" {
			continue
		}
		messages = append(messages, TrafficMessage{
			SituationID:     f.Properties.SituationID,
			SituationType:   f.Properties.SituationType,
			Geometry:        f.Geometry,
			Announcements:   f.Properties.Announcements,
			ReleaseTime:     f.Properties.ReleaseTime,
			DataUpdatedTime: f.Properties.DataUpdatedTime,
		})
	}
	return messages, nil
}

// Title returns the first announcement's title, falling back to the
// situation ID when no announcement carries one.
func (m TrafficMessage) Title() string {
	for _, ann := range m.Announcements {
		if ann.Title != "" {
			return ann.Title
		}
		break
	}
	return "Traffic Message " + m.SituationID
}

// Description joins announcement comments and feature names with " | ".
// Returns "" when nothing descriptive is present.
func (m TrafficMessage) Description() string {
	var parts []string
	for _, ann := range m.Announcements {
		if ann.Comment != "" {
			parts = append(parts, ann.Comment)
		}
	}

	var featureNames []string
	for _, ann := range m.Announcements {
		for _, feat := range ann.Features {
			if feat.Name != "" {
				featureNames = append(featureNames, feat.Name)
			}
		}
	}
	if len(featureNames) > 0 {
		parts = append(parts, strings.Join(featureNames, ", "))
	}

	return strings.Join(parts, " | ")
}

// Municipalities returns the primary and secondary municipality of the first
// announcement's road location, deduplicated, in that order.
func (m TrafficMessage) Municipalities() []string {
	loc := m.roadLocation()
	if loc == nil {
		return nil
	}

	var munis []string
	var primary string
	if loc.PrimaryPoint != nil && loc.PrimaryPoint.Municipality != "" {
		primary = loc.PrimaryPoint.Municipality
		munis = append(munis, primary)
	}
	if loc.SecondaryPoint != nil && loc.SecondaryPoint.Municipality != "" &&
		loc.SecondaryPoint.Municipality != primary {
		munis = append(munis, loc.SecondaryPoint.Municipality)
	}
	return munis
}

// Road returns the road number at the first announcement's primary point.
func (m TrafficMessage) Road() (int, bool) {
	loc := m.roadLocation()
	if loc == nil || loc.PrimaryPoint == nil || loc.PrimaryPoint.RoadNumber == nil {
		return 0, false
	}
	return *loc.PrimaryPoint.RoadNumber, true
}

// Direction returns the travel direction of the first announcement's
// road location, or "" when absent.
func (m TrafficMessage) Direction() string {
	if loc := m.roadLocation(); loc != nil {
		return loc.Direction
	}
	return ""
}

// roadLocation returns the first announcement's road-address location,
// or nil when any level of the chain is absent.
func (m TrafficMessage) roadLocation() *RoadAddressLocation {
	if len(m.Announcements) == 0 {
		return nil
	}
	details := m.Announcements[0].LocationDetails
	if details == nil {
		return nil
	}
	return details.RoadAddressLocation
}
