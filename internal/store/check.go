package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/starford/notewiki/internal/models"
)

// Check verifies the graph invariants: the title index is a bijection onto
// the notes, titles are non-empty, edge lists hold no duplicates or dangling
// ids, and kids are exactly the inverse of tags.
func (s *Store) Check() error {
	var errs []error
	if len(s.ids) != len(s.notes) {
		errs = append(errs, fmt.Errorf("title index has %d entries for %d notes", len(s.ids), len(s.notes)))
	}
	for title, id := range s.ids {
		n, ok := s.notes[id]
		if !ok {
			errs = append(errs, fmt.Errorf("title %q maps to missing id %d", title, id))
			continue
		}
		if n.Title != title {
			errs = append(errs, fmt.Errorf("title %q maps to id %d titled %q", title, id, n.Title))
		}
	}
	for id, n := range s.notes {
		if n.ID != id {
			errs = append(errs, fmt.Errorf("note stored at %d carries id %d", id, n.ID))
		}
		if n.Title == "" {
			errs = append(errs, fmt.Errorf("note %d has an empty title", id))
		}
		if id >= s.nextID {
			errs = append(errs, fmt.Errorf("note %d not below next id %d", id, s.nextID))
		}
		errs = append(errs, s.checkEdges(n, "tags", n.Tags, func(o *models.Note) []models.NoteID { return o.Kids })...)
		errs = append(errs, s.checkEdges(n, "kids", n.Kids, func(o *models.Note) []models.NoteID { return o.Tags })...)
	}
	return errors.Join(errs...)
}

func (s *Store) checkEdges(n *models.Note, field string, edges []models.NoteID, inverse func(*models.Note) []models.NoteID) []error {
	var errs []error
	for i, e := range edges {
		if slices.Contains(edges[:i], e) {
			errs = append(errs, fmt.Errorf("note %d: duplicate %d in %s", n.ID, e, field))
		}
		o, ok := s.notes[e]
		if !ok {
			errs = append(errs, fmt.Errorf("note %d: %s references missing id %d", n.ID, field, e))
			continue
		}
		if !slices.Contains(inverse(o), n.ID) {
			errs = append(errs, fmt.Errorf("note %d: %s edge to %d has no inverse", n.ID, field, e))
		}
	}
	return errs
}
