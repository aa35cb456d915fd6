package listview

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	refreshStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	loadingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// DefaultLoading is the default loading indicator.
func DefaultLoading() string {
	return loadingStyle.Render("loading…")
}

// DefaultError is the default error display.
func DefaultError(err error) string {
	if err == nil {
		return ""
	}
	return errorStyle.Render("error: " + err.Error())
}
