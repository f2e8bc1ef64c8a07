package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	providerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("cyan")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")) // Lighter gray for dark terminals
)

// labelStyle picks the style for an event header.
func labelStyle(ev agentsessions.SessionEvent) lipgloss.Style {
	if ev.Tool != nil {
		return toolStyle
	}
	switch ev.Actor {
	case agentsessions.ActorUser:
		return userStyle
	case agentsessions.ActorAssistant:
		return assistantStyle
	case agentsessions.ActorSystem:
		return systemStyle
	default:
		return metaStyle
	}
}
