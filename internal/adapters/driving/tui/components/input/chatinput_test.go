package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/styles"
)

func TestNewChatInput(t *testing.T) {
	input := NewChatInput(styles.DefaultStyles())

	require.NotNil(t, input)
	assert.Equal(t, "", input.Value())
	assert.True(t, input.Focused())
}

func TestNewChatInput_NilStyles(t *testing.T) {
	input := NewChatInput(nil)

	require.NotNil(t, input)
	assert.NotNil(t, input.styles)
}

func TestChatInput_Init(t *testing.T) {
	assert.NotNil(t, NewChatInput(nil).Init())
}

func TestChatInput_Update(t *testing.T) {
	input := NewChatInput(nil)

	updated, _ := input.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h', 'i'}})

	assert.Same(t, input, updated)
	assert.Equal(t, "hi", input.Value())
}

func TestChatInput_View(t *testing.T) {
	input := NewChatInput(nil)

	assert.Contains(t, input.View(), Prompt)
}

func TestChatInput_Submit(t *testing.T) {
	input := NewChatInput(nil)
	input.SetValue("  hello there  ")

	assert.Equal(t, "hello there", input.Submit())
	assert.Equal(t, "", input.Value())
}

func TestChatInput_SubmitBlank(t *testing.T) {
	input := NewChatInput(nil)
	input.SetValue("   ")

	assert.Equal(t, "", input.Submit())
	assert.Equal(t, "   ", input.Value())
}

func TestChatInput_FocusBlur(t *testing.T) {
	input := NewChatInput(nil)

	input.Blur()
	assert.False(t, input.Focused())

	input.Focus()
	assert.True(t, input.Focused())
}

func TestChatInput_SetWidth(t *testing.T) {
	tests := []struct {
		name          string
		width         int
		expectedInner int
	}{
		{name: "wide", width: 100, expectedInner: 90},
		{name: "narrow clamps", width: 15, expectedInner: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := NewChatInput(nil)
			input.SetWidth(tt.width)

			assert.Equal(t, tt.width, input.Width())
			assert.Equal(t, tt.expectedInner, input.textinput.Width)
		})
	}
}
