package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Options selects the thread the TUI opens on.
type Options struct {
	ThreadID string // empty starts a new thread
	Backend  string // shown in the status bar
}

var _ tea.Model = (*App)(nil)

// App is the root bubbletea model. It owns the quit keys and hands every
// other message to the chat view.
type App struct {
	ctx   context.Context
	quit  *keymap.KeyMap
	view  *chat.View
	ready bool
}

// NewApp builds the chat view for opts.ThreadID, or for a fresh thread.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	km := keymap.DefaultKeyMap()
	return &App{
		ctx:  context.Background(),
		quit: km,
		view: chat.NewView(styles.DefaultStyles(), km, ports.Chat, opts.ThreadID, opts.Backend),
	}, nil
}

// WithContext sets the context chat turns and the program run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.view.SetContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("chatbot"), a.view.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil
	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.quit.Quit) {
			return a, tea.Quit
		}
	case messages.Quit:
		return a, tea.Quit
	case messages.ThreadStarted:
		logger.Debug("tui: started thread %s", msg.ThreadID)
		return a, nil
	}

	var cmd tea.Cmd
	a.view, cmd = a.view.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	return a.view.View()
}

// Run blocks in the alternate screen until the user quits or the context
// is cancelled.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

// ThreadID is the thread currently shown.
func (a *App) ThreadID() string { return a.view.ThreadID() }

// Err is the error from the most recent turn, if any.
func (a *App) Err() error { return a.view.Err() }

// Ready reports whether a window size has been received.
func (a *App) Ready() bool { return a.ready }

// SetDimensions sizes the view as a tea.WindowSizeMsg would.
func (a *App) SetDimensions(width, height int) {
	a.ready = true
	a.view.SetDimensions(width, height)
}
