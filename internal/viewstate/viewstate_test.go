package viewstate

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/starford/notewiki/internal/models"
)

func newState(t *testing.T, ids ...models.NoteID) *ViewState {
	t.Helper()
	v := New(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	v.SeedFromKids(ids)
	return v
}

func ids(v *ViewState) []models.NoteID {
	var out []models.NoteID
	for _, nv := range v.View() {
		out = append(out, nv.ID)
	}
	return out
}

func editFlags(v *ViewState) int {
	n := 0
	for _, nv := range v.View() {
		if nv.Edit {
			n++
		}
	}
	return n
}

func assertEditConsistent(t *testing.T, v *ViewState) {
	t.Helper()
	if got := editFlags(v); v.EditMode() != (got == 1) || got > 1 {
		t.Fatalf("EditMode = %v with %d edit flags", v.EditMode(), got)
	}
}

func TestSeedFromKidsKeepsOrder(t *testing.T) {
	v := newState(t, 3, 1, 2, 1)
	if got := ids(v); !slices.Equal(got, []models.NoteID{3, 1, 2}) {
		t.Errorf("view = %v", got)
	}
}

func TestMoveUpDown(t *testing.T) {
	v := newState(t, 1, 2, 3)
	v.MoveDown(1)
	if got := ids(v); !slices.Equal(got, []models.NoteID{2, 1, 3}) {
		t.Fatalf("after MoveDown = %v", got)
	}
	v.MoveUp(1)
	if got := ids(v); !slices.Equal(got, []models.NoteID{1, 2, 3}) {
		t.Fatalf("after MoveUp = %v", got)
	}
}

func TestMoveAtEndsIsNoop(t *testing.T) {
	v := newState(t, 1, 2, 3)
	v.MoveUp(1)
	v.MoveDown(3)
	v.MoveUp(99)
	v.MoveDown(99)
	if got := ids(v); !slices.Equal(got, []models.NoteID{1, 2, 3}) {
		t.Errorf("view = %v", got)
	}
}

func TestOpenAfter(t *testing.T) {
	v := newState(t, 1, 2)
	v.OpenAfter(5, 1)
	if got := ids(v); !slices.Equal(got, []models.NoteID{1, 5, 2}) {
		t.Fatalf("view = %v", got)
	}
	v.OpenAfter(5, 2)
	if got := ids(v); !slices.Equal(got, []models.NoteID{1, 5, 2}) {
		t.Errorf("reopening visible note changed view: %v", got)
	}
	v.OpenAfter(7, 99)
	if got := ids(v); !slices.Equal(got, []models.NoteID{1, 5, 2, 7}) {
		t.Errorf("unknown anchor should append: %v", got)
	}
}

func TestStartEditFillsBuffer(t *testing.T) {
	v := newState(t, 1)
	ok := v.StartEdit(1, models.NoteStrings{
		Title:   "A",
		Content: "body",
		Tags:    []string{"y", "x"},
		Kids:    []string{"k"},
	})
	if !ok {
		t.Fatal("StartEdit refused")
	}
	assertEditConsistent(t, v)
	buf := v.EditBuffer()
	if buf.Title != "A" || buf.Content != "body" || buf.Tags != " y x" || buf.Kids != " k" {
		t.Errorf("buffer = %+v", *buf)
	}
	if id, editing := v.Editing(); !editing || id != 1 {
		t.Errorf("Editing = %d, %v", id, editing)
	}
}

func TestStartEditRefusals(t *testing.T) {
	v := newState(t, 1, 2)
	if v.StartEdit(1, models.NoteStrings{}) {
		t.Error("untitled snapshot accepted")
	}
	if v.StartEdit(9, models.NoteStrings{Title: "hidden"}) {
		t.Error("hidden note accepted")
	}
	if !v.StartEdit(1, models.NoteStrings{Title: "A"}) {
		t.Fatal("StartEdit refused")
	}
	if v.StartEdit(2, models.NoteStrings{Title: "B"}) {
		t.Error("second edit accepted while editing")
	}
	assertEditConsistent(t, v)
	if v.EditBuffer().Title != "A" {
		t.Errorf("buffer overwritten: %+v", *v.EditBuffer())
	}
}

func TestSubmitEditParsesBuffer(t *testing.T) {
	v := newState(t, 1)
	v.StartEdit(1, models.NoteStrings{Title: "A"})
	buf := v.EditBuffer()
	buf.Title = "A2"
	buf.Tags = "z, x,,x"
	buf.Kids = ""

	got, ok := v.SubmitEdit(1)
	if !ok {
		t.Fatal("SubmitEdit refused")
	}
	if got.Title != "A2" || !slices.Equal(got.Tags, []string{"x", "z"}) || len(got.Kids) != 0 {
		t.Errorf("submitted = %+v", got)
	}
	if _, ok := v.SubmitEdit(2); ok {
		t.Error("submit for a note not being edited accepted")
	}
}

func TestStopEditClearsState(t *testing.T) {
	v := newState(t, 1, 2)
	v.StartEdit(2, models.NoteStrings{Title: "B", Content: "c"})
	v.StopEdit(2)
	assertEditConsistent(t, v)
	if v.EditMode() {
		t.Error("still in edit mode")
	}
	if *v.EditBuffer() != (EditBuffer{}) {
		t.Errorf("buffer not cleared: %+v", *v.EditBuffer())
	}
	if _, ok := v.SubmitEdit(2); ok {
		t.Error("submit after stop accepted")
	}
}

func TestEditFlagMovesWithEntry(t *testing.T) {
	v := newState(t, 1, 2, 3)
	v.StartEdit(2, models.NoteStrings{Title: "B"})
	v.MoveUp(2)
	v.OpenAfter(4, 2)
	assertEditConsistent(t, v)
	if id, _ := v.Editing(); id != 2 {
		t.Errorf("Editing = %d, want 2", id)
	}
}
