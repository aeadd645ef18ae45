package domain

import "strings"

// Entity registry domains.
const (
	EntityDomainSensor = "sensor"
	EntityDomainCamera = "camera"
)

// MessageKey derives the unique ID for a traffic-message sensor entity.
// The owning entry ID namespaces the key so the same situation tracked by
// two services never collides.
func MessageKey(entryID, situationID string) string {
	return entryID + "_tm_" + situationID
}

// MessageKeyPrefix is the unique-ID prefix shared by all traffic-message
// entities of one entry.
func MessageKeyPrefix(entryID string) string {
	return entryID + "_tm_"
}

// SituationIDFromKey extracts the situation ID from a message entity key.
// Returns ok=false when the key does not belong to the given entry.
func SituationIDFromKey(entryID, uniqueID string) (string, bool) {
	prefix := MessageKeyPrefix(entryID)
	if !strings.HasPrefix(uniqueID, prefix) {
		return "", false
	}
	return uniqueID[len(prefix):], true
}

// CameraKey derives the unique ID for a weathercam camera entity.
func CameraKey(entryID, presetID string) string {
	return entryID + "_wc_" + presetID
}

// CameraKeyPrefix is the unique-ID prefix shared by all weathercam entities
// of one entry.
func CameraKeyPrefix(entryID string) string {
	return entryID + "_wc_"
}

// PresetIDFromKey extracts the preset ID from a camera entity key.
// Returns ok=false when the key does not belong to the given entry.
func PresetIDFromKey(entryID, uniqueID string) (string, bool) {
	prefix := CameraKeyPrefix(entryID)
	if !strings.HasPrefix(uniqueID, prefix) {
		return "", false
	}
	return uniqueID[len(prefix):], true
}
