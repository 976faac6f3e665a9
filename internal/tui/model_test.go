package tui

import (
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/notewiki/internal/controller"
	"github.com/starford/notewiki/internal/models"
	"github.com/starford/notewiki/internal/store"
)

func newModel(t *testing.T) (*Model, *controller.Controller) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	st := store.New(logger)
	for _, n := range []struct {
		title string
		tags  []string
	}{
		{"A", []string{store.DefaultTitle, "x"}},
		{"B", []string{store.DefaultTitle}},
		{"C", []string{store.DefaultTitle}},
	} {
		if _, err := st.AddNote(n.title, "body "+n.title, n.tags, nil); err != nil {
			t.Fatal(err)
		}
	}
	ctl := controller.New(st, filepath.Join(t.TempDir(), "notes.json"), controller.WithLogger(logger))
	ctl.Seed()
	return New(ctl), ctl
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

func titles(t *testing.T, ctl *controller.Controller) []string {
	t.Helper()
	var out []string
	for _, nv := range ctl.View().View() {
		n, err := ctl.Store().Get(nv.ID)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, n.Title)
	}
	return out
}

func TestReorderKeys(t *testing.T) {
	m, ctl := newModel(t)
	press(m, "J")
	if got := titles(t, ctl); !slices.Equal(got, []string{"B", "A", "C"}) {
		t.Fatalf("after J = %v", got)
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want to follow A to 1", m.cursor)
	}
	press(m, "K")
	if got := titles(t, ctl); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("after K = %v", got)
	}
}

func TestCursorClamps(t *testing.T) {
	m, _ := newModel(t)
	press(m, "k")
	if m.cursor != 0 {
		t.Errorf("cursor = %d", m.cursor)
	}
	press(m, "j", "j", "j", "j")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
}

func TestOpenLink(t *testing.T) {
	m, ctl := newModel(t)
	// A's links are its tags (default, x) then its kids (none).
	press(m, "tab", "tab", "o")
	if got := titles(t, ctl); !slices.Equal(got, []string{"A", "x", "B", "C"}) {
		t.Errorf("visible = %v", got)
	}
}

func TestEditAndSubmit(t *testing.T) {
	m, ctl := newModel(t)
	press(m, "e")
	if !ctl.View().EditMode() {
		t.Fatal("not in edit mode")
	}
	if m.title.Value() != "A" || m.tags.Value() != "default x" {
		t.Fatalf("fields = %q / %q", m.title.Value(), m.tags.Value())
	}

	press(m, "2", "tab", " ", "z", "ctrl+s")
	if ctl.View().EditMode() {
		t.Fatal("still editing after ctrl+s")
	}
	a, err := ctl.Store().GetByTitle("A2")
	if err != nil {
		t.Fatalf("renamed note missing: %v", err)
	}
	strs, _ := ctl.Store().Strings(a.ID)
	if !slices.Equal(strs.Tags, []string{"default", "x", "z"}) {
		t.Errorf("tags = %v", strs.Tags)
	}
}

func TestEditIgnoresSecondBegin(t *testing.T) {
	m, ctl := newModel(t)
	press(m, "e")
	first, _ := ctl.View().Editing()
	// Typed into the title field, not a key binding.
	press(m, "j", "e")
	if id, _ := ctl.View().Editing(); id != first {
		t.Errorf("editing %d, want %d", id, first)
	}
	if !strings.HasSuffix(m.title.Value(), "je") {
		t.Errorf("title = %q", m.title.Value())
	}
}

func TestEditCancel(t *testing.T) {
	m, ctl := newModel(t)
	press(m, "e", "X", "esc")
	if ctl.View().EditMode() {
		t.Fatal("still editing after esc")
	}
	if _, err := ctl.Store().IDOf("AX"); err == nil {
		t.Error("cancelled edit was written")
	}
}

func TestRejectedSubmitStaysInEditMode(t *testing.T) {
	m, ctl := newModel(t)
	press(m, "e", "backspace", "B", "enter")
	if !ctl.View().EditMode() {
		t.Fatal("edit mode left after rejected rename")
	}
	if m.status == "" {
		t.Error("expected a status message")
	}
	press(m, "esc")
	if ctl.View().EditMode() || m.status != "" {
		t.Errorf("esc should leave edit mode and clear status, status = %q", m.status)
	}
}

func TestPromptOpensByTitle(t *testing.T) {
	m, ctl := newModel(t)
	press(m, "/", "x", "enter")
	if got := titles(t, ctl); !slices.Equal(got, []string{"A", "x", "B", "C"}) {
		t.Errorf("visible = %v", got)
	}
	x, _ := ctl.Store().IDOf("x")
	if m.focused != x {
		t.Errorf("focused = %d, want %d", m.focused, x)
	}

	press(m, "/", "n", "o", "p", "e", "enter")
	if !strings.Contains(m.status, "nope") {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t)
	cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if m.View() != "" {
		t.Error("view should be empty after quit")
	}
}

func TestViewShowsNotes(t *testing.T) {
	m, _ := newModel(t)
	out := m.View()
	for _, want := range []string{"A", "body B", "default, x"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEmptyList(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctl := controller.New(store.New(logger), filepath.Join(t.TempDir(), "n.json"), controller.WithLogger(logger))
	m := New(ctl)
	press(m, "j", "e", "J")
	if m.focused != models.None {
		t.Errorf("focused = %d", m.focused)
	}
	if !strings.Contains(m.View(), "No notes") {
		t.Error("expected empty-list hint")
	}
}
