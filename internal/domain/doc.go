// Package domain models Fintraffic Digitraffic road-traffic data.
//
// # Data Source
//
// Traffic messages come from the Digitraffic traffic-message API
// (https://tie.digitraffic.fi/api/traffic-message/v1/messages), a GeoJSON
// FeatureCollection where each feature is one active traffic situation:
// an accident announcement, road work, a weight restriction, or an exempted
// transport. The service polls only currently active messages
// (inactiveHours=0) with area geometry disabled to keep payloads small.
//
// # Message Conventions
//
// Situation IDs:
//
//	Every feature carries properties.situationId, e.g. "GUID50447825".
//	The ID is stable for the lifetime of a situation and is the natural key
//	for entity reconciliation. Features without a situation ID are dropped
//	during parsing.
//
// Announcements:
//
//	A situation holds an ordered list of announcements. The first
//	announcement provides the display title; comments and feature names from
//	all announcements are joined into the description. Road location details
//	(municipality, road number, direction) live under
//	locationDetails.roadAddressLocation and are frequently absent, so every
//	nested level decodes into a pointer.
//
// Geometry:
//
//	Either a Point ([lon, lat]) or a LineString ([[lon, lat], ...]).
//	Coordinate extraction returns the first pair, converted to lat/lon order.
//
// Municipality filtering:
//
//	A message matches a municipality set when ANY announcement's primary or
//	secondary road-location municipality is in the set. An empty set matches
//	everything.
//
// # Entity Keys
//
// Entity unique IDs are namespaced by the owning service entry so the same
// situation tracked by two services yields two distinct entities:
//
//	{entryID}_tm_{situationID}   traffic-message sensors
//	{entryID}_wc_{presetID}      weathercam cameras
package domain
