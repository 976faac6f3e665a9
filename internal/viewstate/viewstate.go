// Package viewstate holds the ordered list of visible notes and the state of
// the single in-place edit.
package viewstate

import (
	"log/slog"
	"slices"

	"github.com/starford/notewiki/internal/models"
	"github.com/starford/notewiki/internal/parser"
)

// NoteView is one entry of the visible list.
type NoteView struct {
	ID   models.NoteID
	Edit bool
}

// EditBuffer is the scratch copy of the note being edited. Tags and Kids
// hold titles joined into one string.
type EditBuffer struct {
	Title   string
	Content string
	Tags    string
	Kids    string
}

// ViewState never touches the store. The controller reads its edit buffer
// and performs the writes.
type ViewState struct {
	views    []NoteView
	buf      EditBuffer
	editMode bool
	logger   *slog.Logger
}

// New returns an empty view state.
func New(logger *slog.Logger) *ViewState {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewState{logger: logger}
}

// View returns a copy of the visible list.
func (v *ViewState) View() []NoteView {
	return slices.Clone(v.views)
}

// SeedFromKids appends each id as a non-editing entry, in order.
// Ids already visible are skipped.
func (v *ViewState) SeedFromKids(kids []models.NoteID) {
	for _, id := range kids {
		if !v.Contains(id) {
			v.views = append(v.views, NoteView{ID: id})
		}
	}
}

// Index returns the position of id in the visible list, or -1.
func (v *ViewState) Index(id models.NoteID) int {
	return slices.IndexFunc(v.views, func(nv NoteView) bool { return nv.ID == id })
}

// Contains reports whether id is visible.
func (v *ViewState) Contains(id models.NoteID) bool {
	return v.Index(id) >= 0
}

// MoveUp swaps id with its predecessor.
func (v *ViewState) MoveUp(id models.NoteID) {
	if i := v.Index(id); i > 0 {
		v.views[i-1], v.views[i] = v.views[i], v.views[i-1]
	}
}

// MoveDown swaps id with its successor.
func (v *ViewState) MoveDown(id models.NoteID) {
	if i := v.Index(id); i >= 0 && i < len(v.views)-1 {
		v.views[i], v.views[i+1] = v.views[i+1], v.views[i]
	}
}

// OpenAfter makes id visible right after afterID, or at the end when afterID
// is not visible. Nothing happens if id is already visible.
func (v *ViewState) OpenAfter(id, afterID models.NoteID) {
	if v.Contains(id) {
		return
	}
	i := v.Index(afterID)
	if i < 0 {
		v.views = append(v.views, NoteView{ID: id})
		return
	}
	v.views = slices.Insert(v.views, i+1, NoteView{ID: id})
}

// StartEdit puts id into edit mode with the buffer filled from snap. It is
// refused when snap has no title, another edit is open, or id is not
// visible. The return value reports whether edit mode was entered.
func (v *ViewState) StartEdit(id models.NoteID, snap models.NoteStrings) bool {
	if snap.Title == "" {
		v.logger.Debug("viewstate: start edit on untitled note ignored", slog.Uint64("id", uint64(id)))
		return false
	}
	if v.editMode {
		return false
	}
	i := v.Index(id)
	if i < 0 {
		v.logger.Debug("viewstate: start edit on hidden note ignored", slog.Uint64("id", uint64(id)))
		return false
	}
	v.views[i].Edit = true
	v.editMode = true
	v.buf = EditBuffer{
		Title:   snap.Title,
		Content: snap.Content,
		Tags:    parser.JoinWords(snap.Tags),
		Kids:    parser.JoinWords(snap.Kids),
	}
	return true
}

// SubmitEdit returns the edit buffer of id parsed into titles: tags and kids
// are sorted and deduplicated. ok is false when id is not the note being
// edited. The caller writes the result to the store and then calls StopEdit.
func (v *ViewState) SubmitEdit(id models.NoteID) (models.NoteStrings, bool) {
	if cur, editing := v.Editing(); !editing || cur != id {
		return models.NoteStrings{}, false
	}
	return models.NoteStrings{
		Title:   v.buf.Title,
		Content: v.buf.Content,
		Tags:    parser.ParseWords(v.buf.Tags),
		Kids:    parser.ParseWords(v.buf.Kids),
	}, true
}

// StopEdit leaves edit mode and discards the buffer. Edit flags are cleared
// on every entry, not only id, so a stale id cannot leave a flag behind.
func (v *ViewState) StopEdit(id models.NoteID) {
	if cur, editing := v.Editing(); editing && cur != id {
		v.logger.Debug("viewstate: stop edit for a different note",
			slog.Uint64("id", uint64(id)),
			slog.Uint64("editing", uint64(cur)))
	}
	for i := range v.views {
		v.views[i].Edit = false
	}
	v.editMode = false
	v.buf = EditBuffer{}
}

// EditBuffer returns the scratch buffer for a renderer to bind its inputs to.
func (v *ViewState) EditBuffer() *EditBuffer {
	return &v.buf
}

// EditMode reports whether a note is being edited.
func (v *ViewState) EditMode() bool {
	return v.editMode
}

// Editing returns the id being edited.
func (v *ViewState) Editing() (models.NoteID, bool) {
	for _, nv := range v.views {
		if nv.Edit {
			return nv.ID, true
		}
	}
	return models.None, false
}
