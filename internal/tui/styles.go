package tui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named colour palette.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Dim        lipgloss.Color
	Text       lipgloss.Color
	StatusBg   lipgloss.Color
	StatusFg   lipgloss.Color
	PromptBg   lipgloss.Color
	TerminalFg lipgloss.Color
}

var themes = map[string]Theme{
	"light": {
		Name:       "light",
		Primary:    lipgloss.Color("25"),
		Secondary:  lipgloss.Color("30"),
		Success:    lipgloss.Color("28"),
		Error:      lipgloss.Color("160"),
		Dim:        lipgloss.Color("244"),
		Text:       lipgloss.Color("235"),
		StatusBg:   lipgloss.Color("252"),
		StatusFg:   lipgloss.Color("235"),
		PromptBg:   lipgloss.Color("255"),
		TerminalFg: lipgloss.Color("22"),
	},
	"dark": {
		Name:       "dark",
		Primary:    lipgloss.Color("39"),
		Secondary:  lipgloss.Color("86"),
		Success:    lipgloss.Color("42"),
		Error:      lipgloss.Color("196"),
		Dim:        lipgloss.Color("241"),
		Text:       lipgloss.Color("252"),
		StatusBg:   lipgloss.Color("235"),
		StatusFg:   lipgloss.Color("255"),
		PromptBg:   lipgloss.Color("237"),
		TerminalFg: lipgloss.Color("46"),
	},
	"high_contrast": {
		Name:       "high_contrast",
		Primary:    lipgloss.Color("226"),
		Secondary:  lipgloss.Color("51"),
		Success:    lipgloss.Color("46"),
		Error:      lipgloss.Color("196"),
		Dim:        lipgloss.Color("250"),
		Text:       lipgloss.Color("231"),
		StatusBg:   lipgloss.Color("16"),
		StatusFg:   lipgloss.Color("226"),
		PromptBg:   lipgloss.Color("16"),
		TerminalFg: lipgloss.Color("231"),
	},
}

// ThemeNames lists the available themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTheme returns the named theme.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themes[name]
	return t, ok
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	MessageBox lipgloss.Style
	Header     lipgloss.Style
	Text       lipgloss.Style
	Dim        lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Terminal   lipgloss.Style
	TermBox    lipgloss.Style
	Status     lipgloss.Style
	PromptBar  lipgloss.Style
	Welcome    lipgloss.Style
}

func newStyles(t Theme) Styles {
	return Styles{
		MessageBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Dim).
			Padding(0, 1).
			MarginBottom(1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary),
		Text: lipgloss.NewStyle().
			Foreground(t.Text),
		Dim: lipgloss.NewStyle().
			Foreground(t.Dim),
		Error: lipgloss.NewStyle().
			Foreground(t.Error),
		Success: lipgloss.NewStyle().
			Foreground(t.Success),
		Terminal: lipgloss.NewStyle().
			Foreground(t.TerminalFg),
		TermBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(t.Secondary),
		Status: lipgloss.NewStyle().
			Background(t.StatusBg).
			Foreground(t.StatusFg).
			Padding(0, 1),
		PromptBar: lipgloss.NewStyle().
			Background(t.PromptBg).
			Padding(0, 1),
		Welcome: lipgloss.NewStyle().
			Foreground(t.Dim).
			Italic(true).
			Align(lipgloss.Center),
	}
}
