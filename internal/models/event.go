package models

// Worklist event types.
const (
	EventItemAdded   = "item.added"
	EventItemUpdated = "item.updated"
	EventItemRemoved = "item.removed"
)

// WorklistEvent is published after every worklist transition. Items always holds the
// full worklist as it stands after the transition.
type WorklistEvent struct {
	Type   string         `json:"type"`
	ItemID string         `json:"item_id"`
	Items  []ItemSnapshot `json:"items"`
}
