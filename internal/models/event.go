package models

import "time"

// Event actions recorded in the change journal.
const (
	ActionListCreated = "list_created"
	ActionListUpdated = "list_updated"
	ActionItemAdded   = "item_added"
	ActionItemEdited  = "item_edited"
	ActionItemRemoved = "item_removed"
)

// Event is the journal record published to Kafka after every successful
// mutation. The worker consumes it to refresh snapshot caches and to
// reconcile items orphaned by a list deleted mid-add.
type Event struct {
	Action string    `json:"action"`
	ListID string    `json:"list_id"`
	ItemID string    `json:"item_id,omitempty"`
	At     time.Time `json:"at"`
}
