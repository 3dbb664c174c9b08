// Package events publishes and consumes branch change events so every
// process instance keeps its branch registry cache current without
// background invalidation timers.
package events

import "time"

// Topic carries every branch lifecycle event.
const Topic = "stategraph.branch.events"

// Event types.
const (
	TypeBranchCreated = "branch.created"
	TypeSchemaUpdated = "schema.updated"
)

// Event is the wire form of one branch change.
type Event struct {
	Type       string    `json:"type"`
	Branch     string    `json:"branch"`
	SchemaHash string    `json:"schema_hash,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
