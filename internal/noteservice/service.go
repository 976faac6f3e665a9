// Package noteservice serialises access to a Store for the HTTP and MCP
// front-ends, persists it through a storage.Provider and reports changes
// to subscribers.
package noteservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/checksum"
	"github.com/starford/notewiki/internal/models"
	"github.com/starford/notewiki/internal/store"
	"github.com/starford/notewiki/internal/storage"
)

// Change kinds reported to listeners.
const (
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangeReloaded = "reloaded"
)

// Change describes one mutation. ID and Title are zero for ChangeReloaded.
type Change struct {
	Kind  string
	ID    models.NoteID
	Title string
}

// Indexer mirrors the graph somewhere after every save.
type Indexer interface {
	Sync(ctx context.Context, notes []models.Note) error
}

// KidsReader is implemented by indexers that can answer kid queries. Kids
// is served from it while the mirror matches the store.
type KidsReader interface {
	Kids(ctx context.Context, id models.NoteID) ([]models.NoteID, error)
}

// NoteInput carries the writable fields of a note.
type NoteInput struct {
	Title   string
	Content string
	Tags    []string
	Kids    []string
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID      models.NoteID `json:"id"`
	Title   string        `json:"title"`
	Content string        `json:"content"`
	Tags    []string      `json:"tags"`
	Kids    []string      `json:"kids"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID       models.NoteID `json:"id"`
	Title    string        `json:"title"`
	Tags     []string      `json:"tags"`
	KidCount int           `json:"kid_count"`
}

// GraphNode is one vertex of the graph view.
type GraphNode struct {
	ID    models.NoteID `json:"id"`
	Title string        `json:"title"`
}

// GraphLink is a tag edge: Source tags Target.
type GraphLink struct {
	Source models.NoteID `json:"source"`
	Target models.NoteID `json:"target"`
}

// Option configures a Service.
type Option func(*Service)

// WithIndexer mirrors every save into idx.
func WithIndexer(idx Indexer) Option {
	return func(s *Service) {
		s.index = idx
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service is safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	st        *store.Store
	file      storage.Provider
	sum       string // checksum of the file as last loaded or saved
	dirty     bool
	index     Indexer
	mirrored  bool // index holds exactly the current store
	listeners []func(Change)
	logger    *slog.Logger
}

// New wraps st, which was loaded from file.
func New(st *store.Store, file storage.Provider, opts ...Option) *Service {
	s := &Service{st: st, file: file, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if data, err := file.Read(); err == nil {
		s.sum = checksum.Sum(data)
	}
	return s
}

// OnChange registers fn to be called after every mutation. fn runs with
// the service lock released.
func (s *Service) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(c Change) {
	s.mu.Lock()
	listeners := append([]func(Change){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// resolve maps ref to an id. A ref that parses as an existing id is an id;
// anything else is a title.
func (s *Service) resolve(ref string) (models.NoteID, error) {
	if n, err := strconv.ParseUint(ref, 10, 64); err == nil && s.st.Has(models.NoteID(n)) {
		return models.NoteID(n), nil
	}
	return s.st.IDOf(ref)
}

// Get returns the note identified by ref.
func (s *Service) Get(_ context.Context, ref string) (*NoteDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.detail(id)
}

// List returns every note in id order.
func (s *Service) List(_ context.Context) []NoteListItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items(s.st.IDs())
}

// IDOf returns the id of the note titled title. Unlike the ref accepted by
// the other methods, title is never read as an id.
func (s *Service) IDOf(_ context.Context, title string) (models.NoteID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.IDOf(title)
}

// Kids returns the children of the note identified by ref, ordered by id.
func (s *Service) Kids(ctx context.Context, ref string) ([]NoteListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	if kr, ok := s.index.(KidsReader); ok && s.mirrored {
		ids, err := kr.Kids(ctx, id)
		if err == nil {
			return s.items(ids), nil
		}
		s.logger.Warn("noteservice: index kids failed, using store",
			slog.Uint64("id", uint64(id)), slog.String("error", err.Error()))
	}
	n, err := s.st.Get(id)
	if err != nil {
		return nil, err
	}
	return s.items(slices.Sorted(slices.Values(n.Kids))), nil
}

// Create adds a note. A title already in use is rejected unless its note is
// a placeholder created by a forward reference, which is filled in.
func (s *Service) Create(_ context.Context, in NoteInput) (*NoteDetail, error) {
	s.mu.Lock()
	if n, err := s.st.GetByTitle(in.Title); err == nil && (n.Content != "" || len(n.Tags) > 0) {
		s.mu.Unlock()
		return nil, fmt.Errorf("noteservice: create %q: %w", in.Title, apperr.ErrTitleTaken)
	}
	id, err := s.st.AddNote(in.Title, in.Content, in.Tags, in.Kids)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.dirty = true
	s.mirrored = false
	d, err := s.detail(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify(Change{Kind: ChangeCreated, ID: id, Title: d.Title})
	return d, nil
}

// Update rewrites the note identified by ref. Tags and kids replace the
// current sets.
func (s *Service) Update(_ context.Context, ref string, in NoteInput) (*NoteDetail, error) {
	s.mu.Lock()
	id, err := s.resolve(ref)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.st.UpdateNote(id, in.Title, in.Content, in.Tags, in.Kids); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.dirty = true
	s.mirrored = false
	d, err := s.detail(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify(Change{Kind: ChangeUpdated, ID: id, Title: d.Title})
	return d, nil
}

// Graph returns all nodes and tag edges.
func (s *Service) Graph(_ context.Context) ([]GraphNode, []GraphLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.st.Notes()
	nodes := make([]GraphNode, 0, len(notes))
	links := make([]GraphLink, 0)
	for _, n := range notes {
		nodes = append(nodes, GraphNode{ID: n.ID, Title: n.Title})
		for _, t := range n.Tags {
			links = append(links, GraphLink{Source: n.ID, Target: t})
		}
	}
	return nodes, links
}

// Dirty reports whether there are changes not yet saved.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Save writes the store to the file and mirrors it into the indexer.
func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := s.st.Encode(&buf); err != nil {
		return err
	}
	if err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("noteservice: save: %w", err)
	}
	s.sum = checksum.Sum(buf.Bytes())
	s.dirty = false
	s.logger.Info("noteservice: saved", slog.String("path", s.file.Path()), slog.Int("notes", s.st.Len()))
	s.syncIndex(ctx)
	return nil
}

func (s *Service) syncIndex(ctx context.Context) {
	if s.index == nil {
		return
	}
	s.mirrored = false
	if err := s.index.Sync(ctx, s.st.Notes()); err != nil {
		s.logger.Warn("noteservice: index sync failed", slog.String("error", err.Error()))
		return
	}
	s.mirrored = true
}

// SyncIndex brings the indexer up to date with the store. Serving starts
// with it so the mirror never holds ids from an earlier session.
func (s *Service) SyncIndex(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIndex(ctx)
}

// ReloadIfChanged reloads the store when the file content differs from what
// was last loaded or saved. Unsaved changes are never discarded: the reload
// is skipped and a warning logged. A file that fails to parse leaves the
// current store in place. Titles that survive the reload keep their ids.
func (s *Service) ReloadIfChanged(ctx context.Context) (bool, error) {
	s.mu.Lock()
	data, err := s.file.Read()
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	sum := checksum.Sum(data)
	if sum == s.sum {
		s.mu.Unlock()
		return false, nil
	}
	if s.dirty {
		s.mu.Unlock()
		s.logger.Warn("noteservice: file changed on disk while holding unsaved changes, not reloading",
			slog.String("path", s.file.Path()))
		return false, nil
	}
	next := store.New(s.logger)
	next.KeepIDs(s.st)
	if err := next.Decode(bytes.NewReader(data)); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("noteservice: reload: %w", err)
	}
	s.st = next
	s.sum = sum
	s.logger.Info("noteservice: reloaded", slog.String("path", s.file.Path()), slog.Int("notes", next.Len()))
	s.syncIndex(ctx)
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeReloaded})
	return true, nil
}

func (s *Service) detail(id models.NoteID) (*NoteDetail, error) {
	strs, err := s.st.Strings(id)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		ID:      id,
		Title:   strs.Title,
		Content: strs.Content,
		Tags:    strs.Tags,
		Kids:    strs.Kids,
	}, nil
}

func (s *Service) items(ids []models.NoteID) []NoteListItem {
	out := make([]NoteListItem, 0, len(ids))
	for _, id := range ids {
		strs, err := s.st.Strings(id)
		if err != nil {
			continue
		}
		out = append(out, NoteListItem{
			ID:       id,
			Title:    strs.Title,
			Tags:     strs.Tags,
			KidCount: len(strs.Kids),
		})
	}
	return out
}
