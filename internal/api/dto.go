package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notewiki/internal/noteservice"
)

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Kids    []string `json:"kids"`
}

// Validate checks the request before it reaches the service.
func (r *NoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Tags, validation.Each(validation.Required)),
		validation.Field(&r.Kids, validation.Each(validation.Required)),
	)
}

func (r *NoteRequest) input() noteservice.NoteInput {
	return noteservice.NoteInput{
		Title:   r.Title,
		Content: r.Content,
		Tags:    r.Tags,
		Kids:    r.Kids,
	}
}

// NoteDetail is the full note response type.
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response.
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// GraphResponse wraps the note graph.
type GraphResponse struct {
	Nodes []noteservice.GraphNode `json:"nodes"`
	Links []noteservice.GraphLink `json:"links"`
}
