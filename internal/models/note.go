// Package models defines the domain types for NoteWiki.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NoteID is a session-stable handle for a note. Zero means "none".
type NoteID uint64

// None is the reserved zero id.
const None NoteID = 0

// Note is a node in the note graph. Tags point at parents, Kids at children;
// Kids is always the inverse of Tags across the store.
type Note struct {
	ID      NoteID   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []NoteID `json:"tags"`
	Kids    []NoteID `json:"kids"`
}

// Clone returns a copy that shares no slices with n.
func (n Note) Clone() Note {
	n.Tags = append([]NoteID(nil), n.Tags...)
	n.Kids = append([]NoteID(nil), n.Kids...)
	return n
}

// NoteStrings is a note with its edges resolved to titles.
type NoteStrings struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Kids    []string `json:"kids"`
}

// Record is one element of the persisted JSON array. Kids are not stored;
// they are rebuilt from tags on load.
type Record struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Validate validates a persisted record.
func (r *Record) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}
