// Package status renders the one-line bar under the chat input.
package status

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/styles"
)

type State int

const (
	StateReady State = iota
	StateThinking
	StateError
)

func (s State) String() string {
	switch s {
	case StateThinking:
		return "thinking"
	case StateError:
		return "error"
	default:
		return "ready"
	}
}

const (
	shortIDLen   = 8
	defaultWidth = 80
)

// Bar shows the thread, model and backend on the left and key hints on
// the right. While a turn is in flight it animates a spinner.
type Bar struct {
	styles  *styles.Styles
	hints   string
	spin    spinner.Model
	state   State
	errText string

	threadID, model, backend string
	width                    int
}

// NewBar builds a bar; nil arguments take the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	var hints []string
	for _, b := range km.ShortHelp() {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}

	return &Bar{
		styles: s,
		hints:  s.Help.Render(strings.Join(hints, " | ")),
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(s.Warning)),
		width:  defaultWidth,
	}
}

func (b *Bar) Init() tea.Cmd { return nil }

// Update advances the spinner while thinking and ignores everything else.
func (b *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || b.state != StateThinking {
		return b, nil
	}
	var cmd tea.Cmd
	b.spin, cmd = b.spin.Update(tick)
	return b, cmd
}

// Busy switches to thinking and returns the command that starts the
// spinner.
func (b *Bar) Busy() tea.Cmd {
	b.state = StateThinking
	b.errText = ""
	return b.spin.Tick
}

// Fail shows err until the next Busy or Idle.
func (b *Bar) Fail(err error) {
	b.state = StateError
	b.errText = ""
	if err != nil {
		b.errText = err.Error()
	}
}

// Idle returns to the ready state.
func (b *Bar) Idle() {
	b.state = StateReady
	b.errText = ""
}

func (b *Bar) State() State     { return b.state }
func (b *Bar) ErrText() string  { return b.errText }
func (b *Bar) ThreadID() string { return b.threadID }
func (b *Bar) Width() int       { return b.width }

// SetSession sets every field shown on the left.
func (b *Bar) SetSession(threadID, model, backend string) {
	b.threadID, b.model, b.backend = threadID, model, backend
}

func (b *Bar) SetThread(threadID string) { b.threadID = threadID }

func (b *Bar) SetWidth(width int) { b.width = width }

func (b *Bar) View() string {
	left := strings.Join([]string{
		b.field("thread", shortID(b.threadID)),
		b.field("model", b.model),
		b.field("backend", b.backend),
		b.stateView(),
	}, "  ")

	// The bar style pads one cell on each side.
	gap := max(b.width-2-lipgloss.Width(left)-lipgloss.Width(b.hints), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + b.hints)
}

func (b *Bar) stateView() string {
	switch b.state {
	case StateThinking:
		return b.spin.View() + b.styles.Warning.Render(" thinking...")
	case StateError:
		if b.errText == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.errText)
	default:
		return b.styles.Muted.Render("ready")
	}
}

func (b *Bar) field(name, value string) string {
	if value == "" {
		value = "-"
	}
	return b.styles.StatusKey.Render(name+":") + " " + b.styles.Muted.Render(value)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
