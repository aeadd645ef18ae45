package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeServices(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServices_Valid(t *testing.T) {
	path := writeServices(t, `
services:
  - name: helsinki-traffic
    municipalities: [Helsinki, Espoo]
    situationTypes: [TRAFFIC_ANNOUNCEMENT, ROAD_WORK]
  - name: all-traffic
  - name: highway-cams
    type: weathercam
    cameras:
      - cameraId: C01502
        presets: [C0150200, C0150201]
`)

	services, err := LoadServices(path)
	require.NoError(t, err)
	require.Len(t, services, 3)

	assert.Equal(t, "helsinki-traffic", services[0].Name)
	assert.Equal(t, ServiceTrafficMessages, services[0].Type, "type defaults to traffic_messages")
	assert.Equal(t, []string{"Helsinki", "Espoo"}, services[0].Municipalities)
	assert.Equal(t, []string{"TRAFFIC_ANNOUNCEMENT", "ROAD_WORK"}, services[0].SituationTypes)

	assert.Empty(t, services[1].Municipalities)
	assert.Empty(t, services[1].SituationTypes)

	assert.Equal(t, ServiceWeathercam, services[2].Type)
	require.Len(t, services[2].Cameras, 1)
	assert.Equal(t, "C01502", services[2].Cameras[0].CameraID)
}

func TestLoadServices_MissingFile(t *testing.T) {
	_, err := LoadServices(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read services file")
}

func TestLoadServices_Empty(t *testing.T) {
	path := writeServices(t, "services: []\n")
	_, err := LoadServices(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no services")
}

func TestLoadServices_UnknownSituationType(t *testing.T) {
	path := writeServices(t, `
services:
  - name: bad
    situationTypes: [TRAFFIC_JAM]
`)
	_, err := LoadServices(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `service "bad"`)
}

func TestLoadServices_UnnamedService(t *testing.T) {
	path := writeServices(t, `
services:
  - municipalities: [Helsinki]
`)
	_, err := LoadServices(path)
	require.Error(t, err)
}

func TestLoadServices_WeathercamWithoutCameras(t *testing.T) {
	path := writeServices(t, `
services:
  - name: cams
    type: weathercam
`)
	_, err := LoadServices(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selects no cameras")
}

func TestLoadServices_CameraWithoutPresets(t *testing.T) {
	path := writeServices(t, `
services:
  - name: cams
    type: weathercam
    cameras:
      - cameraId: C01502
        presets: []
`)
	_, err := LoadServices(path)
	require.Error(t, err)
}

func TestLoadServices_DuplicateName(t *testing.T) {
	path := writeServices(t, `
services:
  - name: twice
  - name: twice
`)
	_, err := LoadServices(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate service name")
}
