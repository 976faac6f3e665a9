package controller

import (
	"github.com/starford/notewiki/internal/events"
	"github.com/starford/notewiki/internal/models"
	"github.com/starford/notewiki/internal/viewstate"
)

// StoreReader is the read-only view of the store handed to renderers.
type StoreReader interface {
	Get(id models.NoteID) (models.Note, error)
	Strings(id models.NoteID) (models.NoteStrings, error)
	IDOf(title string) (models.NoteID, error)
}

// ViewReader is the part of the view state a renderer may touch. The edit
// buffer is writable so text inputs can bind to it.
type ViewReader interface {
	View() []viewstate.NoteView
	EditMode() bool
	Editing() (models.NoteID, bool)
	EditBuffer() *viewstate.EditBuffer
}

// RenderCtx is what a renderer gets for one frame. Events pushed to Events
// are applied after the frame returns.
type RenderCtx struct {
	Store  StoreReader
	View   ViewReader
	Events *events.Queue
}

// Renderer draws one frame and reports whether the user asked to close.
// A renderer that also implements io.Closer is closed by Controller.Close.
type Renderer interface {
	Render(rc *RenderCtx) (done bool)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(rc *RenderCtx) bool

// Render calls f(rc).
func (f RendererFunc) Render(rc *RenderCtx) bool {
	return f(rc)
}
