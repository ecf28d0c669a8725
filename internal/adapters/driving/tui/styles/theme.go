// Package styles holds the colours and lipgloss styles of the chat TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the palette. Each colour has a light and a dark terminal
// variant; lipgloss picks one from the detected background.
type Theme struct {
	Accent     lipgloss.AdaptiveColor
	User       lipgloss.AdaptiveColor
	Assistant  lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor // turn in flight
	Error      lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
	Bar        lipgloss.AdaptiveColor // status bar background
}

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// DefaultTheme is a Catppuccin-like palette: Latte on light terminals,
// Mocha on dark ones.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:     adaptive("#8839EF", "#CBA6F7"),
		User:       adaptive("#04A5E5", "#89DCEB"),
		Assistant:  adaptive("#40A02B", "#A6E3A1"),
		Foreground: adaptive("#4C4F69", "#CDD6F4"),
		Muted:      adaptive("#8C8FA1", "#6C7086"),
		Warning:    adaptive("#DF8E1D", "#F9E2AF"),
		Error:      adaptive("#D20F39", "#F38BA8"),
		Border:     adaptive("#BCC0CC", "#45475A"),
		Bar:        adaptive("#E6E9EF", "#181825"),
	}
}

// Styles are the lipgloss styles the views and components render with.
type Styles struct {
	theme *Theme

	Title          lipgloss.Style
	Normal         lipgloss.Style
	Muted          lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Error          lipgloss.Style
	Warning        lipgloss.Style
	Help           lipgloss.Style

	InputField lipgloss.Style // rounded box around the prompt
	Transcript lipgloss.Style // conversation pane, ruled underneath
	StatusBar  lipgloss.Style
	StatusKey  lipgloss.Style // field names inside the status bar
}

// NewStyles derives the styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.TerminalColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		theme:          theme,
		Title:          fg(theme.Accent).Bold(true),
		Normal:         fg(theme.Foreground),
		Muted:          fg(theme.Muted),
		UserLabel:      fg(theme.User).Bold(true),
		AssistantLabel: fg(theme.Assistant).Bold(true),
		Error:          fg(theme.Error),
		Warning:        fg(theme.Warning),
		Help:           fg(theme.Muted).Italic(true),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Transcript: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(theme.Border),
		StatusBar: fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		StatusKey: fg(theme.Foreground).Background(theme.Bar).Bold(true),
	}
}

// DefaultStyles is NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
