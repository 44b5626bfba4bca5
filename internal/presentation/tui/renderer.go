package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// Markdown formats r for a terminal. Options are numbered so they can be
// answered by typing the number.
func Markdown(r domain.Renderable) string {
	var sb strings.Builder
	if r.Title != "" {
		fmt.Fprintf(&sb, "### %s\n\n", r.Title)
	}
	if r.Body != "" {
		sb.WriteString(r.Body)
		sb.WriteString("\n")
	}
	if len(r.Items) > 0 {
		sb.WriteString("\n")
		for _, item := range r.Items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
	}
	if len(r.Options) > 0 {
		sb.WriteString("\n")
		for i, o := range r.Options {
			fmt.Fprintf(&sb, "%d. **%s** `%s`\n", i+1, o.Title, o.ID)
		}
	}
	return sb.String()
}

// Renderer turns renderables into terminal output.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer returns a glamour-backed renderer, or a plain one when plain
// is set (output is not a terminal).
func NewRenderer(plain bool) (*Renderer, error) {
	if plain {
		return &Renderer{}, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, fmt.Errorf("terminal renderer: %w", err)
	}
	return &Renderer{term: r}, nil
}

// Render formats msg. Styling failures fall back to the raw markdown.
func (r *Renderer) Render(msg domain.Renderable) string {
	md := Markdown(msg)
	if r.term == nil {
		return md
	}
	out, err := r.term.Render(md)
	if err != nil {
		return md
	}
	return out
}
