package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messageIn builds a message whose first announcement is located in the given
// municipalities.
func messageIn(situationID, primary, secondary string) TrafficMessage {
	loc := &RoadAddressLocation{}
	if primary != "" {
		loc.PrimaryPoint = &RoadPoint{Municipality: primary}
	}
	if secondary != "" {
		loc.SecondaryPoint = &RoadPoint{Municipality: secondary}
	}
	return TrafficMessage{
		SituationID:   situationID,
		SituationType: SituationTrafficAnnouncement,
		Announcements: []Announcement{{
			Title:           "announcement for " + situationID,
			LocationDetails: &LocationDetails{RoadAddressLocation: loc},
		}},
	}
}

func TestFilterByMunicipality(t *testing.T) {
	a1 := messageIn("A1", "Helsinki", "")
	a2 := messageIn("A2", "Oulu", "")

	t.Run("keeps only matching messages", func(t *testing.T) {
		filtered := FilterByMunicipality([]TrafficMessage{a1, a2}, []string{"Helsinki"})
		require.Len(t, filtered, 1)
		assert.Equal(t, "A1", filtered[0].SituationID)
	})

	t.Run("empty filter returns input unchanged", func(t *testing.T) {
		messages := []TrafficMessage{a1, a2}
		filtered := FilterByMunicipality(messages, nil)
		assert.Equal(t, messages, filtered)
	})

	t.Run("secondary municipality matches", func(t *testing.T) {
		msg := messageIn("B1", "Vantaa", "Helsinki")
		filtered := FilterByMunicipality([]TrafficMessage{msg}, []string{"Helsinki"})
		require.Len(t, filtered, 1)
	})

	t.Run("any announcement can match", func(t *testing.T) {
		msg := messageIn("C1", "Turku", "")
		msg.Announcements = append(msg.Announcements, Announcement{
			LocationDetails: &LocationDetails{
				RoadAddressLocation: &RoadAddressLocation{
					PrimaryPoint: &RoadPoint{Municipality: "Helsinki"},
				},
			},
		})
		filtered := FilterByMunicipality([]TrafficMessage{msg}, []string{"Helsinki"})
		require.Len(t, filtered, 1)
	})

	t.Run("message without location details is dropped", func(t *testing.T) {
		msg := TrafficMessage{SituationID: "D1", Announcements: []Announcement{{Title: "no location"}}}
		filtered := FilterByMunicipality([]TrafficMessage{msg}, []string{"Helsinki"})
		assert.Empty(t, filtered)
	})

	t.Run("every filtered message matches the set", func(t *testing.T) {
		input := []TrafficMessage{
			messageIn("E1", "Helsinki", ""),
			messageIn("E2", "Espoo", "Helsinki"),
			messageIn("E3", "Oulu", "Rovaniemi"),
			messageIn("E4", "", ""),
		}
		set := map[string]struct{}{"Helsinki": {}, "Espoo": {}}
		filtered := FilterByMunicipality(input, []string{"Helsinki", "Espoo"})
		require.Len(t, filtered, 2)
		for _, msg := range filtered {
			assert.True(t, msg.MatchesMunicipalities(set), "situation %s", msg.SituationID)
		}
	})
}

func TestEntityKeys(t *testing.T) {
	key := MessageKey("entry-1", "GUID123")
	assert.Equal(t, "entry-1_tm_GUID123", key)

	situationID, ok := SituationIDFromKey("entry-1", key)
	require.True(t, ok)
	assert.Equal(t, "GUID123", situationID)

	_, ok = SituationIDFromKey("entry-2", key)
	assert.False(t, ok, "keys are namespaced per entry")

	camKey := CameraKey("entry-1", "C0150200")
	assert.Equal(t, "entry-1_wc_C0150200", camKey)

	presetID, ok := PresetIDFromKey("entry-1", camKey)
	require.True(t, ok)
	assert.Equal(t, "C0150200", presetID)

	_, ok = PresetIDFromKey("entry-1", key)
	assert.False(t, ok, "message keys are not camera keys")
}
