package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles holds the text styles used by the text format.
type Styles struct {
	Header lipgloss.Style
	Target lipgloss.Style
	Source lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style
}

// Renderer writes styled text. Styles only emit escape codes when the
// output is a terminal.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	styles Styles
}

// NewRenderer creates a Renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer) *Renderer {
	return NewRendererWithTTY(out, errOut, IsTerminal(out))
}

// NewRendererWithTTY creates a Renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool) *Renderer {
	lr := lipgloss.NewRenderer(out)
	if isTTY {
		lr.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		styles: Styles{
			Header: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			Target: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			Source: lr.NewStyle().Foreground(lipgloss.Color("14")),
			Muted:  lr.NewStyle().Foreground(lipgloss.Color("8")),
			Bold:   lr.NewStyle().Bold(true),
		},
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether the renderer writes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the renderer's styles.
func (r *Renderer) Styles() Styles { return r.styles }

// Writer returns the primary output.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line to the primary output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the primary output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Warnf writes a formatted line to the error output.
func (r *Renderer) Warnf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.errOut, format+"\n", a...)
}
