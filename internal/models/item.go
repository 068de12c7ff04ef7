package models

import "time"

// Item is a single line of content within a list.
type Item struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Checked   bool      `json:"checked"`
	ListID    string    `json:"list_id"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"-"`
}

// ItemPatch is the complete set of item fields a caller may change.
// Nil means "leave unchanged".
type ItemPatch struct {
	Content *string `json:"content"`
	Checked *bool   `json:"checked"`
}
