package domain

// FilterConfig holds the per-service filter settings. Empty municipalities
// means no municipality filtering; empty situation types means all types.
type FilterConfig struct {
	Municipalities []string
	SituationTypes []string
}

// MatchesMunicipalities reports whether any announcement's primary or
// secondary municipality is in the given set. An empty set matches all.
func (m TrafficMessage) MatchesMunicipalities(municipalities map[string]struct{}) bool {
	if len(municipalities) == 0 {
		return true
	}
	for _, ann := range m.Announcements {
		details := ann.LocationDetails
		if details == nil || details.RoadAddressLocation == nil {
			continue
		}
		loc := details.RoadAddressLocation
		if loc.PrimaryPoint != nil {
			if _, ok := municipalities[loc.PrimaryPoint.Municipality]; ok {
				return true
			}
		}
		if loc.SecondaryPoint != nil {
			if _, ok := municipalities[loc.SecondaryPoint.Municipality]; ok {
				return true
			}
		}
	}
	return false
}

// FilterByMunicipality keeps only messages matching the municipality list.
// An empty list returns the input unchanged.
func FilterByMunicipality(messages []TrafficMessage, municipalities []string) []TrafficMessage {
	if len(municipalities) == 0 {
		return messages
	}

	set := make(map[string]struct{}, len(municipalities))
	for _, m := range municipalities {
		set[m] = struct{}{}
	}

	filtered := make([]TrafficMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.MatchesMunicipalities(set) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}
