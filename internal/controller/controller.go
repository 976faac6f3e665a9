// Package controller runs the frame loop: a renderer draws from read-only
// state and queues events, then the controller applies them to the view
// state and the store before the next frame.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/events"
	"github.com/starford/notewiki/internal/models"
	"github.com/starford/notewiki/internal/store"
	"github.com/starford/notewiki/internal/viewstate"
)

// SaveHook runs after every successful save.
type SaveHook func(ctx context.Context, st *store.Store) error

// Option configures a Controller.
type Option func(*Controller)

// WithSaveHook registers fn to run after the store has been saved.
func WithSaveHook(fn SaveHook) Option {
	return func(c *Controller) {
		c.hooks = append(c.hooks, fn)
	}
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller owns the store, the view state and the event queue. It is
// single-goroutine: Step, Drain and Close must not run concurrently.
type Controller struct {
	store  *store.Store
	view   *viewstate.ViewState
	queue  events.Queue
	path   string
	hooks  []SaveHook
	logger *slog.Logger
	closed bool
}

// New returns a controller over st that saves to path on Close.
func New(st *store.Store, path string, opts ...Option) *Controller {
	c := &Controller{
		store:  st,
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.view = viewstate.New(c.logger)
	return c
}

// Store returns the underlying store.
func (c *Controller) Store() *store.Store { return c.store }

// View returns the view state.
func (c *Controller) View() *viewstate.ViewState { return c.view }

// Queue returns the event queue renderers push to.
func (c *Controller) Queue() *events.Queue { return &c.queue }

// RenderCtx returns the frame context for a renderer.
func (c *Controller) RenderCtx() *RenderCtx {
	return &RenderCtx{Store: c.store, View: c.view, Events: &c.queue}
}

// Seed fills the visible list with the kids of the default note.
func (c *Controller) Seed() {
	def, err := c.store.GetByTitle(store.DefaultTitle)
	if err != nil {
		c.logger.Info("controller: no default note, starting with an empty list")
		return
	}
	c.view.SeedFromKids(def.Kids)
	c.logger.Debug("controller: seeded view", slog.Int("notes", len(def.Kids)))
}

// Apply performs the effect of one event.
func (c *Controller) Apply(ev events.Event) error {
	switch ev.Kind {
	case events.MoveUp:
		c.view.MoveUp(ev.ID)
	case events.MoveDown:
		c.view.MoveDown(ev.ID)
	case events.OpenID:
		if !c.store.Has(ev.ID) {
			return fmt.Errorf("controller: open %d: %w", ev.ID, apperr.ErrNotFound)
		}
		c.view.OpenAfter(ev.ID, ev.InsertAfter)
	case events.CancelEdit:
		c.view.StopEdit(ev.ID)
	case events.BeginEdit:
		if c.view.EditMode() {
			c.logger.Debug("controller: begin edit ignored while editing", slog.Uint64("id", uint64(ev.ID)))
			return nil
		}
		snap, err := c.store.Strings(ev.ID)
		if err != nil {
			return fmt.Errorf("controller: begin edit: %w", err)
		}
		c.view.StartEdit(ev.ID, snap)
	case events.SubmitEdit:
		return c.submit(ev.ID)
	default:
		return fmt.Errorf("controller: event kind %d: %w", ev.Kind, apperr.ErrArg)
	}
	return nil
}

// submit writes the edit buffer back. On failure the note stays in edit
// mode so the user can fix the buffer or cancel.
func (c *Controller) submit(id models.NoteID) error {
	parsed, ok := c.view.SubmitEdit(id)
	if !ok {
		return fmt.Errorf("controller: submit %d: not being edited: %w", id, apperr.ErrArg)
	}
	cur, err := c.store.Strings(id)
	if err != nil {
		return fmt.Errorf("controller: submit: %w", err)
	}
	cur.Title = parsed.Title
	cur.Content = parsed.Content
	cur.Tags = parsed.Tags
	cur.Kids = parsed.Kids
	if err := c.store.UpdateNote(id, cur.Title, cur.Content, cur.Tags, cur.Kids); err != nil {
		return fmt.Errorf("controller: submit: %w", err)
	}
	c.view.StopEdit(id)
	c.logger.Debug("controller: note updated", slog.Uint64("id", uint64(id)), slog.String("title", cur.Title))
	return nil
}

// Drain applies every queued event in FIFO order and returns how many were
// applied. Failing events are logged and dropped.
func (c *Controller) Drain() int {
	applied := 0
	for {
		ev, ok := c.queue.TryPop()
		if !ok {
			return applied
		}
		if err := c.Apply(ev); err != nil {
			c.logger.Error("controller: event dropped",
				slog.String("kind", ev.Kind.String()),
				slog.Uint64("id", uint64(ev.ID)),
				slog.String("error", err.Error()))
			continue
		}
		applied++
	}
}

// Step renders one frame and drains the events it produced.
func (c *Controller) Step(r Renderer) (done bool) {
	done = r.Render(c.RenderCtx())
	c.Drain()
	return done
}

// Run steps until the renderer reports done or ctx is cancelled, then
// closes the controller.
func (c *Controller) Run(ctx context.Context, r Renderer) error {
	for ctx.Err() == nil {
		if c.Step(r) {
			break
		}
	}
	return c.Close(ctx, r)
}

// Save writes the store to the configured path and runs the save hooks.
// Hook failures are logged; only the save itself is fatal.
func (c *Controller) Save(ctx context.Context) error {
	if err := c.store.Save(c.path); err != nil {
		return err
	}
	for _, hook := range c.hooks {
		if err := hook(ctx, c.store); err != nil {
			c.logger.Warn("controller: save hook failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Close saves the store and tears down r when it is an io.Closer. r may be
// nil. Calling Close again does nothing.
func (c *Controller) Close(ctx context.Context, r Renderer) error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if err := c.Save(ctx); err != nil {
		c.logger.Error("controller: save failed, changes are lost",
			slog.String("path", c.path),
			slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if closer, ok := r.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("controller: close renderer: %w", err))
		}
	}
	return errors.Join(errs...)
}
