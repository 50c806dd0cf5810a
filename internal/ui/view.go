// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/ui/styles"
	"github.com/jeranaias/sonic-tui/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	body := m.viewport.View()
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}
	sections = append(sections, body)

	if m.state == stateLoading {
		sections = append(sections, m.renderLoadBar())
	}
	sections = append(sections, styles.InputFrame.Width(m.chatWidth()-2).Render(m.input.View()))
	sections = append(sections, m.renderStatus())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m *Model) renderHeader() string {
	title := styles.Header.Render("SONIC")
	info := styles.HeaderInfo.Render(m.modelLabel())
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(info) - 1
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + info
}

func (m *Model) renderSidebar() string {
	metas := m.controller.Conversations()
	active := m.controller.ActiveID()

	var sb strings.Builder
	sb.WriteString(styles.Hint.Render("conversations") + "\n")
	for _, meta := range metas {
		label := util.TruncateWidth(meta.Title, sidebarWidth-4)
		if meta.ID == active {
			sb.WriteString(styles.SidebarSelected.Render("> " + label))
		} else {
			sb.WriteString(styles.SidebarItem.Render("  " + label))
		}
		sb.WriteString("\n")
	}

	return styles.Sidebar.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height).
		Render(sb.String())
}

func (m *Model) renderLoadBar() string {
	label := m.loadReport.Phase.String()
	if m.loadReport.ModelID != "" {
		label = model.DisplayName(m.loadReport.ModelID) + ": " + label
	}
	return "  " + styles.StatusBusy.Render(label) + " " + m.loadBar.View()
}

func (m *Model) renderStatus() string {
	var left string
	switch {
	case m.statusIsErr:
		left = styles.StatusError.Render(m.status)
	case m.status != "":
		left = styles.StatusBar.Render(m.status)
	case m.state == stateStreaming:
		left = styles.StatusBusy.Render("generating...")
	case m.controller.IsResident(m.controller.Model()):
		left = styles.StatusReady.Render("ready")
	default:
		left = styles.StatusBar.Render("model loads on first message")
	}

	hints := styles.Hint.Render("enter send · tab sidebar · ctrl+n new · ctrl+p model · ctrl+e export · ctrl+c quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hints) - 2
	if gap < 1 {
		return " " + left
	}
	return " " + left + strings.Repeat(" ", gap) + hints
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// refreshViewport re-renders the active conversation into the viewport.
// When follow is true the view sticks to the bottom.
func (m *Model) refreshViewport(follow bool) {
	conv := m.controller.Active()
	if conv.IsEmpty() {
		m.viewport.SetContent(m.renderWelcome())
		return
	}

	var sb strings.Builder
	profile := m.controller.Profile()
	for i, msg := range conv.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(msg, profile.Name))
	}

	m.viewport.SetContent(sb.String())
	if follow {
		m.viewport.GotoBottom()
	}
}

// renderMessage renders one message with its sender label.
func (m *Model) renderMessage(msg *model.Message, userName string) string {
	var sender string
	if msg.Role == model.RoleUser {
		name := userName
		if name == "" {
			name = msg.Role.DisplayName()
		}
		sender = styles.SenderUser.Render(name)
	} else {
		sender = styles.SenderAssistant.Render(msg.Role.DisplayName())
	}

	content := msg.Content
	if content == "" && msg.Role == model.RoleAssistant {
		content = "..."
	} else if msg.Role == model.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}

	var attachments string
	if msg.HasImages() {
		attachments = "\n" + styles.Hint.Render(fmt.Sprintf("[%d image(s) attached]", len(msg.Images)))
	}

	return sender + "\n" + content + attachments + "\n"
}
