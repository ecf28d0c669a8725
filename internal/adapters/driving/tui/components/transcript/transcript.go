// Package transcript provides the scrolling conversation pane of the TUI.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// markdownStyle is the glamour style assistant replies render with.
const markdownStyle = "dark"

// Transcript renders the messages of a thread in a viewport.
// Assistant replies are rendered as Markdown.
type Transcript struct {
	styles   *styles.Styles
	viewport viewport.Model
	renderer *glamour.TermRenderer
	messages []domain.Message
	width    int
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	t := &Transcript{
		styles:   s,
		viewport: viewport.New(80, 20),
	}
	t.setWidth(80)
	t.refresh()
	return t
}

// Init initialises the transcript.
func (t *Transcript) Init() tea.Cmd {
	return nil
}

// Update forwards scrolling input to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the transcript.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// SetSize resizes the viewport and re-wraps the content.
func (t *Transcript) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Height = height
	if width != t.width {
		t.setWidth(width)
	}
	t.refresh()
}

// Append adds messages and scrolls to the bottom.
func (t *Transcript) Append(msgs ...domain.Message) {
	t.messages = append(t.messages, msgs...)
	t.refresh()
}

// Reset replaces all messages.
func (t *Transcript) Reset(msgs []domain.Message) {
	t.messages = append([]domain.Message(nil), msgs...)
	t.refresh()
}

// Messages returns the messages shown.
func (t *Transcript) Messages() []domain.Message {
	return t.messages
}

// LineUp scrolls up by a half page.
func (t *Transcript) LineUp() {
	t.viewport.HalfViewUp()
}

// LineDown scrolls down by a half page.
func (t *Transcript) LineDown() {
	t.viewport.HalfViewDown()
}

// Content renders every message, including lines scrolled out of view.
func (t *Transcript) Content() string {
	if len(t.messages) == 0 {
		return t.styles.Muted.Render("No messages yet. Say hello!")
	}

	parts := make([]string, 0, len(t.messages))
	for _, msg := range t.messages {
		parts = append(parts, t.renderMessage(msg))
	}
	return strings.Join(parts, "\n")
}

func (t *Transcript) renderMessage(msg domain.Message) string {
	switch msg.Role {
	case domain.RoleUser:
		return t.styles.UserLabel.Render("you") + "\n" + t.styles.Normal.Render(msg.Content) + "\n"
	case domain.RoleAssistant:
		return t.styles.AssistantLabel.Render("assistant") + "\n" + t.markdown(msg.Content)
	default:
		return t.styles.Muted.Render(msg.Role.String()+": "+msg.Content) + "\n"
	}
}

// markdown renders content with glamour, falling back to plain text.
func (t *Transcript) markdown(content string) string {
	if t.renderer == nil {
		return content + "\n"
	}
	out, err := t.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return strings.Trim(out, "\n") + "\n"
}

func (t *Transcript) setWidth(width int) {
	t.width = width
	t.viewport.Width = width

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(markdownStyle),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		renderer = nil
	}
	t.renderer = renderer
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.Content())
	t.viewport.GotoBottom()
}
