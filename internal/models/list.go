package models

import "time"

// Status is the lifecycle state of a record. Deleted records stay in
// storage; every read path filters them out.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Field length limits enforced before any store mutation.
const (
	MaxContentLen     = 500
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// DefaultDescription is attached to every newly created list.
const DefaultDescription = "**NOTE**: This is a PUBLIC list. Any changes you make will be seen by " +
	"anyone viewing this list.\n\n-----\n"

// List is the top-level shared entity. Items holds the ordered sequence
// of item ids; that ordering is authoritative and user-controlled.
// A nil Description means the list has no description at all, which is
// distinct from an empty one.
type List struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Items       []string  `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Status      Status    `json:"-"`
}

// ListPatch is the complete set of list fields a caller may change.
// Anything a client submits outside these fields is not representable
// and therefore cannot reach storage. Nil means "leave unchanged".
type ListPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Items       *[]string `json:"items"`
}

// MaterializedList is a List with its item ids expanded into the full,
// ordered item records. It is derived on every read and never stored.
type MaterializedList struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Items       []Item    `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
