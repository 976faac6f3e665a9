package index

import (
	"context"

	"github.com/starford/notewiki/internal/models"
)

// NoteIndex is the read and sync surface of the mirror.
type NoteIndex interface {
	Sync(ctx context.Context, notes []models.Note) error
	Kids(ctx context.Context, id models.NoteID) ([]models.NoteID, error)
	Tags(ctx context.Context, id models.NoteID) ([]models.NoteID, error)
	TitleOf(ctx context.Context, id models.NoteID) (string, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
