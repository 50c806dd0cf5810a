// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/ui/styles"
)

// renderWelcome fills an empty conversation with an orientation screen:
// a greeting, the model lineup, and the privacy note.
func (m *Model) renderWelcome() string {
	var sb strings.Builder

	name := m.controller.Profile().Name
	sb.WriteString("\n")
	sb.WriteString(styles.SenderAssistant.Render(fmt.Sprintf("Hey %s, I'm SONIC.", name)))
	sb.WriteString("\n\n")
	sb.WriteString("Everything runs on this machine. Your conversations never leave it.\n\n")

	sb.WriteString(styles.Hint.Render("models") + "\n")
	for _, id := range model.CatalogIDs() {
		info, _ := model.GetModelInfo(id)
		marker := "  "
		if m.controller.IsResident(id) {
			marker = styles.StatusReady.Render("* ")
		}
		line := fmt.Sprintf("%s%s  ~%.1f GB", marker, info.Name, info.ApproxSizeGB)
		if id == m.controller.Model() {
			line = styles.SidebarSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(styles.Hint.Render("The first message on a new model downloads it; later loads are fast."))
	sb.WriteString("\n")

	return sb.String()
}
