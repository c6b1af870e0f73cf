package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/tagwm/internal/wm"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	viewedTagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	occupiedTagStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	emptyTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	urgentTagStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	bannedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// renderMonitorBar renders one tab per monitor.
func renderMonitorBar(monitors []wm.MonitorInfo, active, width int) string {
	if len(monitors) == 0 {
		return tabBarStyle.Width(width).Render(inactiveTabStyle.Render("no monitors"))
	}
	var tabs []string
	for i, mon := range monitors {
		label := mon.Name
		if mon.Asleep {
			label += " (asleep)"
		}
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// renderTagBar renders the tags of one monitor the way a status bar would:
// viewed tags highlighted, tags without clients dimmed.
func renderTagBar(tags []wm.TagInfo, layout string) string {
	parts := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		switch {
		case t.Urgent:
			parts = append(parts, urgentTagStyle.Render(t.Name))
		case t.Selected:
			parts = append(parts, viewedTagStyle.Render(t.Name))
		case t.Clients > 0:
			parts = append(parts, occupiedTagStyle.Render(t.Name))
		default:
			parts = append(parts, emptyTagStyle.Render(t.Name))
		}
	}
	if layout != "" {
		parts = append(parts, occupiedTagStyle.Render("["+layout+"]"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(connected bool, clients int, focused string, width int) string {
	var status string
	if connected {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{dot + " daemon connected"}
		parts = append(parts, "clients:"+strconv.Itoa(clients))
		if focused != "" {
			parts = append(parts, "focused:"+focused)
		}
		status = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(status)
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	help := "tab: monitor  1-9: view tag  j/k: select  enter: focus  f: float  x: close  space: layout  q: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
