// Package chat provides the conversation view of the TUI.
package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
)

// chromeHeight is the rows taken by header, input box, divider and status bar.
const chromeHeight = 6

// View is the chat view: transcript, input and status bar.
type View struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	chatService driving.ChatService
	ctx         context.Context

	transcript *transcript.Transcript
	input      *input.ChatInput
	status     *status.Bar

	threadID string
	pending  bool
	err      error
	width    int
	height   int
}

// NewView creates a chat view. threadID resumes a thread when non-empty,
// otherwise a new thread is started.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chatService driving.ChatService,
	threadID, backend string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:      s,
		keymap:      km,
		chatService: chatService,
		ctx:         context.Background(),
		transcript:  transcript.New(s),
		input:       input.NewChatInput(s),
		status:      status.NewBar(s, km),
		threadID:    threadID,
	}
	if v.threadID == "" {
		v.threadID = chatService.NewThread()
	}
	v.status.SetSession(v.threadID, chatService.ModelName(), backend)
	return v
}

// SetContext sets the context chat turns run under.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init starts the cursor blinking and loads the history of the thread.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadHistory(v.threadID))
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.MessageSubmitted:
		return v, v.send(msg.ThreadID, msg.Content)

	case messages.TurnCompleted:
		if msg.ThreadID != v.threadID {
			return v, nil
		}
		v.pending = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.status.Idle()
		v.transcript.Append(msg.Replies...)
		return v, nil

	case messages.HistoryLoaded:
		if msg.ThreadID != v.threadID {
			return v, nil
		}
		if msg.Err != nil && !errors.Is(msg.Err, domain.ErrNotFound) {
			v.setError(msg.Err)
			return v, nil
		}
		v.transcript.Reset(msg.Messages)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.status, cmd = v.status.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.transcript, cmd = v.transcript.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Send):
		if v.pending {
			return v, nil
		}
		content := v.input.Submit()
		if content == "" {
			return v, nil
		}
		if domain.IsExitCommand(content) {
			return v, func() tea.Msg { return messages.Quit{} }
		}
		v.transcript.Append(domain.NewUserMessage(content))
		v.pending = true
		threadID := v.threadID
		return v, tea.Batch(v.status.Busy(), func() tea.Msg {
			return messages.MessageSubmitted{ThreadID: threadID, Content: content}
		})

	case keymap.Matches(key, v.keymap.NewThread):
		if v.pending {
			return v, nil
		}
		v.startThread()
		threadID := v.threadID
		return v, func() tea.Msg { return messages.ThreadStarted{ThreadID: threadID} }

	case keymap.Matches(key, v.keymap.ScrollUp):
		v.transcript.LineUp()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollDown):
		v.transcript.LineDown()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// send runs one turn in the background and reports its replies.
func (v *View) send(threadID, content string) tea.Cmd {
	ctx := v.ctx
	svc := v.chatService
	return func() tea.Msg {
		var replies []domain.Message
		err := svc.Send(ctx, threadID, content, func(reply domain.Message) error {
			replies = append(replies, reply)
			return nil
		})
		return messages.TurnCompleted{ThreadID: threadID, Replies: replies, Err: err}
	}
}

func (v *View) loadHistory(threadID string) tea.Cmd {
	ctx := v.ctx
	svc := v.chatService
	return func() tea.Msg {
		msgs, err := svc.History(ctx, threadID)
		return messages.HistoryLoaded{ThreadID: threadID, Messages: msgs, Err: err}
	}
}

func (v *View) startThread() {
	v.threadID = v.chatService.NewThread()
	v.err = nil
	v.transcript.Reset(nil)
	v.status.Idle()
	v.status.SetThread(v.threadID)
}

func (v *View) setError(err error) {
	v.err = err
	v.status.Fail(err)
}

// View renders the chat view.
func (v *View) View() string {
	header := v.styles.Title.Render("chatbot") + " " + v.styles.Muted.Render("thread "+v.threadID)
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		v.styles.Transcript.Render(v.transcript.View()),
		v.input.View(),
		v.status.View(),
	)
}

// SetDimensions sizes the components to the terminal.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.transcript.SetSize(width, height-chromeHeight)
	v.input.SetWidth(width)
	v.status.SetWidth(width)
}

// ThreadID returns the active thread.
func (v *View) ThreadID() string {
	return v.threadID
}

// Pending reports whether a turn is in flight.
func (v *View) Pending() bool {
	return v.pending
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Transcript returns the messages on screen.
func (v *View) Transcript() []domain.Message {
	return v.transcript.Messages()
}

// Input returns the current input text.
func (v *View) Input() string {
	return v.input.Value()
}
