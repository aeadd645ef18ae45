package domain

import "time"

// Entity lifecycle actions published to the event sink.
const (
	EntityAdded   = "added"
	EntityRemoved = "removed"
)

// EntityEvent records one add or remove operation performed by the
// reconciler. Published to the Kafka sink so downstream consumers can mirror
// the entity set.
type EntityEvent struct {
	Action     string    `json:"action"`
	UniqueID   string    `json:"unique_id"`
	EntityID   string    `json:"entity_id"`
	Domain     string    `json:"domain"`
	EntryID    string    `json:"entry_id"`
	Service    string    `json:"service"`
	NaturalID  string    `json:"natural_id"` // situation ID or preset ID
	OccurredAt time.Time `json:"occurred_at"`
}
