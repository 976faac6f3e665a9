// Package tui is the interactive terminal renderer. Keys become events on
// the controller's queue; the queue is drained after every message so the
// next View sees the result.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/notewiki/internal/controller"
	"github.com/starford/notewiki/internal/models"
)

type field int

const (
	fieldTitle field = iota
	fieldTags
	fieldKids
	fieldContent
	fieldCount
)

// Model is the bubbletea model over a controller.
type Model struct {
	ctl *controller.Controller
	rc  *controller.RenderCtx

	width  int
	height int

	cursor  int
	focused models.NoteID
	link    int // index into the focused note's tags then kids, -1 for none

	editing models.NoteID
	field   field
	title   textinput.Model
	tags    textinput.Model
	kids    textinput.Model
	content textarea.Model

	prompting bool
	prompt    textinput.Model

	submitted bool
	status    string
	quitting  bool
}

// New returns a model over ctl. The controller should already be seeded.
func New(ctl *controller.Controller) *Model {
	m := &Model{
		ctl:     ctl,
		rc:      ctl.RenderCtx(),
		link:    -1,
		title:   newInput("title"),
		tags:    newInput("tags, space or comma separated"),
		kids:    newInput("kids, space or comma separated"),
		content: newContentArea(),
		prompt:  newInput("open note by title"),
	}
	m.refocus()
	return m
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 0
	return ti
}

func newContentArea() textarea.Model {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = ""
	ta.SetHeight(6)
	ta.Blur()
	return ta
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := max(msg.Width-6, 20)
		m.title.Width, m.tags.Width, m.kids.Width = w, w, w
		m.content.SetWidth(w)
		return m, nil
	case tea.KeyMsg:
		switch {
		case m.prompting:
			cmd = m.updatePrompt(msg)
		case m.rc.View.EditMode():
			cmd = m.updateEdit(msg)
		default:
			cmd = m.updateBrowse(msg)
		}
	default:
		return m, nil
	}

	m.ctl.Drain()
	if focusCmd := m.syncEditor(); focusCmd != nil {
		cmd = tea.Batch(cmd, focusCmd)
	}
	m.refocus()
	return m, cmd
}

func (m *Model) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	q := m.rc.Events
	m.status = ""
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return tea.Quit
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "J", "shift+down":
		if m.focused != models.None {
			q.MoveDown(m.focused)
		}
	case "K", "shift+up":
		if m.focused != models.None {
			q.MoveUp(m.focused)
		}
	case "tab":
		m.cycleLink(1)
	case "shift+tab":
		m.cycleLink(-1)
	case "o", "enter":
		if id, ok := m.selectedLink(); ok {
			q.OpenID(id, m.focused)
		}
	case "e":
		if m.focused != models.None && !m.rc.View.EditMode() {
			q.BeginEdit(m.focused)
		}
	case "/":
		m.prompting = true
		m.prompt.SetValue("")
		return m.prompt.Focus()
	}
	return nil
}

func (m *Model) updateEdit(msg tea.KeyMsg) tea.Cmd {
	q := m.rc.Events
	switch msg.String() {
	case "esc":
		q.CancelEdit(m.editing)
		return nil
	case "ctrl+s":
		m.submit()
		return nil
	case "enter":
		if m.field != fieldContent {
			m.submit()
			return nil
		}
	case "tab":
		return m.focusField((m.field + 1) % fieldCount)
	case "shift+tab":
		return m.focusField((m.field + fieldCount - 1) % fieldCount)
	}

	var cmd tea.Cmd
	switch m.field {
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldTags:
		m.tags, cmd = m.tags.Update(msg)
	case fieldKids:
		m.kids, cmd = m.kids.Update(msg)
	case fieldContent:
		m.content, cmd = m.content.Update(msg)
	}
	m.copyToBuffer()
	return cmd
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		return nil
	case "enter":
		title := strings.TrimSpace(m.prompt.Value())
		m.closePrompt()
		if title == "" {
			return nil
		}
		id, err := m.rc.Store.IDOf(title)
		if err != nil {
			m.status = fmt.Sprintf("no note titled %q", title)
			return nil
		}
		m.rc.Events.OpenID(id, m.focused)
		m.focused = id
		return nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return cmd
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.prompt.Blur()
	m.prompt.SetValue("")
}

func (m *Model) submit() {
	m.copyToBuffer()
	m.rc.Events.SubmitEdit(m.editing)
	m.submitted = true
}

// copyToBuffer mirrors the input fields into the view state's edit buffer.
func (m *Model) copyToBuffer() {
	buf := m.rc.View.EditBuffer()
	buf.Title = m.title.Value()
	buf.Tags = m.tags.Value()
	buf.Kids = m.kids.Value()
	buf.Content = m.content.Value()
}

// syncEditor loads or clears the input fields when edit mode changed during
// the last drain.
func (m *Model) syncEditor() tea.Cmd {
	id, editing := m.rc.View.Editing()
	rejected := m.submitted && editing
	m.submitted = false
	switch {
	case editing && id != m.editing:
		m.editing = id
		buf := m.rc.View.EditBuffer()
		m.title.SetValue(buf.Title)
		m.tags.SetValue(strings.TrimLeft(buf.Tags, " "))
		m.kids.SetValue(strings.TrimLeft(buf.Kids, " "))
		m.content.SetValue(buf.Content)
		m.focused = id
		return m.focusField(fieldTitle)
	case !editing && m.editing != models.None:
		m.editing = models.None
		m.status = ""
		m.title.Blur()
		m.tags.Blur()
		m.kids.Blur()
		m.content.Blur()
	case rejected:
		m.status = "not saved, see log"
	}
	return nil
}

func (m *Model) focusField(f field) tea.Cmd {
	m.field = f
	m.title.Blur()
	m.tags.Blur()
	m.kids.Blur()
	m.content.Blur()
	switch f {
	case fieldTitle:
		return m.title.Focus()
	case fieldTags:
		return m.tags.Focus()
	case fieldKids:
		return m.kids.Focus()
	default:
		return m.content.Focus()
	}
}

// refocus keeps the cursor on the focused note after the list changed.
func (m *Model) refocus() {
	view := m.rc.View.View()
	if len(view) == 0 {
		m.cursor, m.focused, m.link = 0, models.None, -1
		return
	}
	for i, nv := range view {
		if nv.ID == m.focused {
			m.cursor = i
			return
		}
	}
	m.cursor = min(max(m.cursor, 0), len(view)-1)
	m.focused = view[m.cursor].ID
	m.link = -1
}

func (m *Model) moveCursor(delta int) {
	view := m.rc.View.View()
	if len(view) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(view)-1)
	m.focused = view[m.cursor].ID
	m.link = -1
}

func (m *Model) links() []models.NoteID {
	n, err := m.rc.Store.Get(m.focused)
	if err != nil {
		return nil
	}
	return append(n.Tags, n.Kids...)
}

func (m *Model) cycleLink(delta int) {
	n := len(m.links())
	if n == 0 {
		m.link = -1
		return
	}
	m.link = ((m.link+delta)%n + n) % n
}

func (m *Model) selectedLink() (models.NoteID, bool) {
	links := m.links()
	if m.link < 0 || m.link >= len(links) {
		return models.None, false
	}
	return links[m.link], true
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var sections []string
	view := m.rc.View.View()
	if len(view) == 0 {
		sections = append(sections, labelStyle.Render("No notes. Tag a note 'default' to list it here, or press / to open one."))
	}
	for i, nv := range view {
		if nv.Edit {
			sections = append(sections, m.renderEditor())
			continue
		}
		sections = append(sections, m.renderNote(nv.ID, i == m.cursor))
	}
	if m.prompting {
		sections = append(sections, "open: "+m.prompt.View())
	}
	if m.status != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	sections = append(sections, helpStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderNote(id models.NoteID, focused bool) string {
	n, err := m.rc.Store.Get(id)
	if err != nil {
		return statusStyle.Render(fmt.Sprintf("missing note %d", id))
	}
	link := -1
	if focused {
		link = m.link
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(n.Title))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("tags: "))
	b.WriteString(m.renderLinks(n.Tags, link))
	if n.Content != "" {
		b.WriteString("\n")
		b.WriteString(n.Content)
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("kids: "))
	b.WriteString(m.renderLinks(n.Kids, link-len(n.Tags)))

	style := cardStyle
	if focused {
		style = focusedCardStyle
	}
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

func (m *Model) renderLinks(ids []models.NoteID, selected int) string {
	parts := make([]string, 0, len(ids))
	for i, id := range ids {
		title := fmt.Sprintf("#%d", id)
		if n, err := m.rc.Store.Get(id); err == nil {
			title = n.Title
		}
		if i == selected {
			parts = append(parts, selectedLinkStyle.Render(title))
		} else {
			parts = append(parts, linkStyle.Render(title))
		}
	}
	return strings.Join(parts, ", ")
}

func (m *Model) renderEditor() string {
	rows := []string{
		labelStyle.Render("title: ") + m.title.View(),
		labelStyle.Render("tags:  ") + m.tags.View(),
		labelStyle.Render("kids:  ") + m.kids.View(),
		m.content.View(),
	}
	style := editCardStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) help() string {
	switch {
	case m.prompting:
		return "enter open  esc cancel"
	case m.rc.View.EditMode():
		return "tab next field  ctrl+s save  esc cancel"
	default:
		return "j/k move  J/K reorder  tab link  o open  e edit  / find  q quit"
	}
}

// Run starts the terminal UI and blocks until the user quits or ctx is
// cancelled. The controller is closed, and the store saved, on return.
func Run(ctx context.Context, ctl *controller.Controller, opts ...tea.ProgramOption) error {
	m := New(ctl)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, runErr := tea.NewProgram(m, opts...).Run()
	closeErr := ctl.Close(ctx, nil)
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		runErr = nil
	}
	if runErr != nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	return closeErr
}
