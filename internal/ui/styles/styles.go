// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// SHARED COMPONENT STYLES
// =============================================================================

var (
	// Header holds the app title bar.
	Header = lipgloss.NewStyle().
		Foreground(Blue).
		Bold(true).
		Padding(0, 1)

	// HeaderInfo is the right side of the title bar.
	HeaderInfo = lipgloss.NewStyle().
			Foreground(TextMuted)

	// Sidebar frames the conversation list.
	Sidebar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(Overlay).
		Padding(0, 1)

	// SidebarItem is an unselected conversation entry.
	SidebarItem = lipgloss.NewStyle().
			Foreground(TextSecondary)

	// SidebarSelected is the active conversation entry.
	SidebarSelected = lipgloss.NewStyle().
			Foreground(Blue).
			Bold(true)

	// SenderUser labels user messages.
	SenderUser = lipgloss.NewStyle().
			Foreground(Blue).
			Bold(true)

	// SenderAssistant labels assistant messages.
	SenderAssistant = lipgloss.NewStyle().
			Foreground(Violet).
			Bold(true)

	// StatusBar is the bottom status line.
	StatusBar = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1)

	// StatusError renders failures in the status line.
	StatusError = lipgloss.NewStyle().
			Foreground(Rose)

	// StatusBusy renders load/generation activity.
	StatusBusy = lipgloss.NewStyle().
			Foreground(Amber)

	// StatusReady renders the resident model indicator.
	StatusReady = lipgloss.NewStyle().
			Foreground(Emerald)

	// InputFrame borders the input field.
	InputFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1)

	// Hint renders keybinding hints.
	Hint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
)
