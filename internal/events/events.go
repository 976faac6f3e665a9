// Package events carries user intents from a renderer to the controller.
package events

import "github.com/starford/notewiki/internal/models"

// Kind identifies what an Event asks for.
type Kind int

const (
	BeginEdit Kind = iota + 1
	CancelEdit
	SubmitEdit
	OpenID
	MoveUp
	MoveDown
)

func (k Kind) String() string {
	switch k {
	case BeginEdit:
		return "begin_edit"
	case CancelEdit:
		return "cancel_edit"
	case SubmitEdit:
		return "submit_edit"
	case OpenID:
		return "open_id"
	case MoveUp:
		return "move_up"
	case MoveDown:
		return "move_down"
	default:
		return "unknown"
	}
}

// Event is one user intent. InsertAfter is only meaningful for OpenID.
type Event struct {
	Kind        Kind
	ID          models.NoteID
	InsertAfter models.NoteID
}

// Queue is a FIFO of events. It is not safe for concurrent use: the
// renderer pushes and the controller pops on the same goroutine.
type Queue struct {
	items []Event
}

// Push appends ev.
func (q *Queue) Push(ev Event) {
	q.items = append(q.items, ev)
}

// TryPop removes and returns the oldest event. ok is false when empty.
func (q *Queue) TryPop() (ev Event, ok bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	ev = q.items[0]
	q.items[0] = Event{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return ev, true
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.items)
}

// Helpers used by renderers.

func (q *Queue) BeginEdit(id models.NoteID)  { q.Push(Event{Kind: BeginEdit, ID: id}) }
func (q *Queue) CancelEdit(id models.NoteID) { q.Push(Event{Kind: CancelEdit, ID: id}) }
func (q *Queue) SubmitEdit(id models.NoteID) { q.Push(Event{Kind: SubmitEdit, ID: id}) }
func (q *Queue) MoveUp(id models.NoteID)     { q.Push(Event{Kind: MoveUp, ID: id}) }
func (q *Queue) MoveDown(id models.NoteID)   { q.Push(Event{Kind: MoveDown, ID: id}) }

func (q *Queue) OpenID(id, after models.NoteID) {
	q.Push(Event{Kind: OpenID, ID: id, InsertAfter: after})
}
