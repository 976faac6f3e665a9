// Package textview prints the visible notes once as plain text.
package textview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/notewiki/internal/controller"
)

const separator = "----------------------------------------"

// Renderer writes every visible note to w and then asks to close. Styling
// is only applied when w is a colour terminal.
type Renderer struct {
	w      io.Writer
	title  lipgloss.Style
	label  lipgloss.Style
	errors int
}

// New returns a renderer writing to w.
func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		w:     w,
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label: r.NewStyle().Faint(true),
	}
}

// Render implements controller.Renderer.
func (r *Renderer) Render(rc *controller.RenderCtx) bool {
	for _, nv := range rc.View.View() {
		note, err := rc.Store.Strings(nv.ID)
		if err != nil {
			r.errors++
			continue
		}
		fmt.Fprintln(r.w, separator)
		fmt.Fprintf(r.w, "%s %s\n", r.label.Render("Title:"), r.title.Render(note.Title))
		fmt.Fprintf(r.w, "  %s %s\n", r.label.Render("tags:"), strings.Join(note.Tags, ", "))
		if note.Content != "" {
			fmt.Fprintln(r.w, note.Content)
		}
		fmt.Fprintf(r.w, "  %s %s\n", r.label.Render("kids:"), strings.Join(note.Kids, ", "))
	}
	return true
}

// Skipped returns how many visible ids could not be resolved.
func (r *Renderer) Skipped() int {
	return r.errors
}
