package domain

// CameraPreset is a fixed viewpoint of a weathercam station.
type CameraPreset struct {
	ID               string `json:"id" validate:"required"`
	PresentationName string `json:"presentationName"`
	ImageURL         string `json:"imageUrl" validate:"required,url"`
	DirectionCode    string `json:"directionCode"`
}

// CameraStation is one weathercam station from the static catalog.
// Loaded once at setup; read-only at runtime.
type CameraStation struct {
	Name                    string            `json:"name" validate:"required"`
	Municipality            string            `json:"municipality"`
	Presets                 []CameraPreset    `json:"presets" validate:"dive"`
	Names                   map[string]string `json:"names"`
	NearestWeatherStationID *int              `json:"nearestWeatherStationId"`
}

// Preset finds a preset of this station by ID.
func (s CameraStation) Preset(presetID string) (CameraPreset, bool) {
	for _, p := range s.Presets {
		if p.ID == presetID {
			return p, true
		}
	}
	return CameraPreset{}, false
}
