// Package store owns the in-memory note graph.
//
// Notes are kept in an arena keyed by models.NoteID with a second index from
// title to id. Edges are ids, never pointers: Tags point at parents and Kids
// at children, and every mutation keeps Kids the exact inverse of Tags.
//
// A Store is not safe for concurrent use; callers serialise access.
package store

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/models"
)

// DefaultTitle is the note whose kids seed the visible list on startup.
const DefaultTitle = "default"

const (
	welcomeTitle   = "NoteWiki"
	welcomeContent = "This is the NoteWiki app.\n  Tag any note 'default' to show them on startup."
)

// Store is the note graph.
type Store struct {
	notes  map[models.NoteID]*models.Note
	ids    map[string]models.NoteID
	nextID models.NoteID
	keep   map[string]models.NoteID // ids to reuse, see KeepIDs
	logger *slog.Logger
}

// New returns an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		notes:  make(map[models.NoteID]*models.Note),
		ids:    make(map[string]models.NoteID),
		nextID: 1,
		logger: logger,
	}
}

// Open loads the store from path. When the file cannot be read or parsed
// the store starts from the default welcome note instead.
func Open(path string, logger *slog.Logger) *Store {
	s := New(logger)
	if err := s.Load(path); err != nil {
		s.logger.Warn("store: load failed, starting with default content",
			slog.String("path", path),
			slog.String("error", err.Error()))
		s = New(logger)
		s.seedDefault()
		return s
	}
	s.logger.Info("store: loaded", slog.String("path", path), slog.Int("notes", s.Len()))
	if err := s.Check(); err != nil {
		s.logger.Debug("store: invariant check failed after load", slog.String("error", err.Error()))
	}
	return s
}

// KeepIDs makes s give every title the id it has in prev, and allocate
// ids for new titles above any prev has used. Call it on an empty store
// before loading, so ids handed out earlier keep naming the same titles.
func (s *Store) KeepIDs(prev *Store) {
	s.keep = maps.Clone(prev.ids)
	s.nextID = max(s.nextID, prev.nextID)
}

func (s *Store) seedDefault() {
	if _, err := s.AddNote(welcomeTitle, welcomeContent, []string{DefaultTitle}, nil); err != nil {
		s.logger.Error("store: seed default", slog.String("error", err.Error()))
	}
}

// intern returns the id of title, allocating a placeholder note when the
// title has not been seen. title must be non-empty.
func (s *Store) intern(title string) models.NoteID {
	if id, ok := s.ids[title]; ok {
		return id
	}
	id, ok := s.keep[title]
	if !ok {
		id = s.nextID
		s.nextID++
	}
	s.notes[id] = &models.Note{ID: id, Title: title}
	s.ids[title] = id
	return id
}

// internAll interns titles in order, skipping empty and repeated ones.
func (s *Store) internAll(titles []string) []models.NoteID {
	out := make([]models.NoteID, 0, len(titles))
	for _, t := range titles {
		if t == "" {
			continue
		}
		id := s.intern(t)
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// IDOf returns the id registered for title.
func (s *Store) IDOf(title string) (models.NoteID, error) {
	id, ok := s.ids[title]
	if !ok {
		return models.None, fmt.Errorf("store: title %q: %w", title, apperr.ErrNotFound)
	}
	return id, nil
}

// Has reports whether id identifies a note.
func (s *Store) Has(id models.NoteID) bool {
	_, ok := s.notes[id]
	return ok
}

// Get returns a copy of the note with the given id.
func (s *Store) Get(id models.NoteID) (models.Note, error) {
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, fmt.Errorf("store: id %d: %w", id, apperr.ErrNotFound)
	}
	return n.Clone(), nil
}

// GetByTitle returns a copy of the note with the given title.
func (s *Store) GetByTitle(title string) (models.Note, error) {
	id, err := s.IDOf(title)
	if err != nil {
		return models.Note{}, err
	}
	return s.Get(id)
}

// Strings returns the note with its tags and kids resolved to titles.
func (s *Store) Strings(id models.NoteID) (models.NoteStrings, error) {
	n, ok := s.notes[id]
	if !ok {
		return models.NoteStrings{}, fmt.Errorf("store: id %d: %w", id, apperr.ErrNotFound)
	}
	return models.NoteStrings{
		Title:   n.Title,
		Content: n.Content,
		Tags:    s.titlesOf(n.Tags),
		Kids:    s.titlesOf(n.Kids),
	}, nil
}

// StringsByTitle is Strings keyed by title.
func (s *Store) StringsByTitle(title string) (models.NoteStrings, error) {
	id, err := s.IDOf(title)
	if err != nil {
		return models.NoteStrings{}, err
	}
	return s.Strings(id)
}

func (s *Store) titlesOf(ids []models.NoteID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[id]; ok {
			out = append(out, n.Title)
		}
	}
	return out
}

// Len returns the number of notes, placeholders included.
func (s *Store) Len() int {
	return len(s.notes)
}

// IDs returns every id in ascending order.
func (s *Store) IDs() []models.NoteID {
	out := make([]models.NoteID, 0, len(s.notes))
	for id := range s.notes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Notes returns copies of every note in id order.
func (s *Store) Notes() []models.Note {
	ids := s.IDs()
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.notes[id].Clone())
	}
	return out
}

// AddNote writes title's note with content and tags, and adds kids to the
// ones it already has. Tag and kid notes that do not exist yet are created
// as placeholders. Every edge is mirrored on the other note.
func (s *Store) AddNote(title, content string, tags, kids []string) (models.NoteID, error) {
	if title == "" {
		return models.None, fmt.Errorf("store: add note: %w", apperr.ErrInvalidTitle)
	}
	id := s.intern(title)
	n := s.notes[id]
	tagIDs := s.internAll(tags)
	kidIDs := s.internAll(kids)
	for _, k := range n.Kids {
		if !slices.Contains(kidIDs, k) {
			kidIDs = append(kidIDs, k)
		}
	}
	n.Content = content
	s.setEdges(n, tagIDs, kidIDs)
	s.logger.Debug("store: add note", slog.Uint64("id", uint64(id)), slog.String("title", title))
	return id, nil
}

// UpdateNote rewrites the note at id. Tags and kids replace the current
// sets, and the inverse edges on the affected notes follow. A call whose
// fields all match the stored note does nothing.
func (s *Store) UpdateNote(id models.NoteID, title, content string, tags, kids []string) error {
	n, ok := s.notes[id]
	if !ok {
		return fmt.Errorf("store: update id %d: %w", id, apperr.ErrNotFound)
	}
	if title == "" {
		return fmt.Errorf("store: update id %d: %w", id, apperr.ErrInvalidTitle)
	}
	tags, kids = cleanTitles(tags), cleanTitles(kids)
	if title == n.Title && content == n.Content &&
		slices.Equal(tags, s.titlesOf(n.Tags)) && slices.Equal(kids, s.titlesOf(n.Kids)) {
		return nil
	}

	if title != n.Title {
		if other, taken := s.ids[title]; taken && other != id {
			return fmt.Errorf("store: rename %q to %q: %w", n.Title, title, apperr.ErrTitleTaken)
		}
		delete(s.ids, n.Title)
		s.ids[title] = id
		n.Title = title
	}
	// Interned after the rename so a self reference resolves to id.
	n.Content = content
	s.setEdges(n, s.internAll(tags), s.internAll(kids))
	s.logger.Debug("store: update note", slog.Uint64("id", uint64(id)), slog.String("title", title))
	return nil
}

// setEdges replaces n's tags and kids and patches the inverse lists of every
// note that gained or lost an edge. A self edge exists iff n tags itself.
func (s *Store) setEdges(n *models.Note, tags, kids []models.NoteID) {
	id := n.ID
	kids = slices.DeleteFunc(slices.Clone(kids), func(k models.NoteID) bool { return k == id })
	if slices.Contains(tags, id) {
		kids = append(kids, id)
	}

	oldTags, oldKids := n.Tags, n.Kids
	for _, t := range oldTags {
		if t != id && !slices.Contains(tags, t) {
			s.notes[t].Kids = swapRemove(s.notes[t].Kids, id)
		}
	}
	for _, t := range tags {
		if t != id && !slices.Contains(oldTags, t) {
			s.notes[t].Kids = appendUnique(s.notes[t].Kids, id)
		}
	}
	for _, k := range oldKids {
		if k != id && !slices.Contains(kids, k) {
			s.notes[k].Tags = orderedRemove(s.notes[k].Tags, id)
		}
	}
	for _, k := range kids {
		if k != id && !slices.Contains(oldKids, k) {
			s.notes[k].Tags = appendUnique(s.notes[k].Tags, id)
		}
	}
	n.Tags = tags
	n.Kids = kids
}

// cleanTitles drops empty and repeated titles, keeping first occurrences.
func cleanTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func appendUnique(list []models.NoteID, id models.NoteID) []models.NoteID {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// swapRemove removes id without preserving order. Kids are a set.
func swapRemove(list []models.NoteID, id models.NoteID) []models.NoteID {
	i := slices.Index(list, id)
	if i < 0 {
		return list
	}
	last := len(list) - 1
	list[i] = list[last]
	return list[:last]
}

// orderedRemove removes id keeping the order tags were written in.
func orderedRemove(list []models.NoteID, id models.NoteID) []models.NoteID {
	return slices.DeleteFunc(list, func(x models.NoteID) bool { return x == id })
}
