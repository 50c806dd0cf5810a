// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sonic-tui/internal/export"
	"github.com/jeranaias/sonic-tui/internal/model"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamChunkMsg:
		if m.stream == nil {
			return m, nil
		}
		m.refreshViewport(true)
		return m, waitStream(m.stream, msg.conversationID)

	case streamDoneMsg:
		m.stream = nil
		m.state = stateReady
		if msg.err != nil {
			m.setError(msg.err.Error())
		}
		m.refreshViewport(true)
		return m, nil

	case loadProgressMsg:
		if m.warmup == nil {
			return m, nil
		}
		m.loadReport = msg.report
		cmd := m.loadBar.SetPercent(msg.report.Percent)
		return m, tea.Batch(cmd, waitWarmup(m.warmup, msg.report.ModelID))

	case loadDoneMsg:
		m.warmup = nil
		m.state = stateReady
		if msg.err != nil {
			m.setError(msg.err.Error())
			return m, nil
		}
		return m, flashStatus(model.DisplayName(msg.modelID) + " ready")

	case progress.FrameMsg:
		bar, cmd := m.loadBar.Update(msg)
		m.loadBar = bar.(progress.Model)
		return m, cmd

	case configReloadedMsg:
		m.applyConfig(msg.cfg)
		if m.cfgWatcher == nil {
			return m, flashStatus("config reloaded")
		}
		return m, tea.Batch(flashStatus("config reloaded"), waitConfigReload(m.cfgWatcher))

	case statusMsg:
		m.status = string(msg)
		m.statusIsErr = false
		return m, nil

	case clearStatusMsg:
		if !m.statusIsErr {
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Cancel):
		if m.state != stateReady {
			m.controller.Cancel()
			return m, flashStatus("cancelled")
		}
		return m, nil

	case key.Matches(msg, keys.Send):
		return m.handleSend()

	case key.Matches(msg, keys.NewChat):
		if m.state != stateReady {
			return m, nil
		}
		if _, err := m.controller.NewConversation(); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.refreshViewport(true)
		return m, flashStatus("new conversation")

	case key.Matches(msg, keys.DeleteChat):
		if m.state != stateReady {
			return m, nil
		}
		if err := m.controller.DeleteConversation(m.controller.ActiveID()); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.refreshViewport(true)
		return m, flashStatus("conversation deleted")

	case key.Matches(msg, keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		m.resize()
		return m, nil

	case key.Matches(msg, keys.NextChat):
		m.selectAdjacent(1)
		return m, nil

	case key.Matches(msg, keys.PrevChat):
		m.selectAdjacent(-1)
		return m, nil

	case key.Matches(msg, keys.CycleModel):
		if m.state != stateReady {
			return m, nil
		}
		next := m.cycleModel()
		if !m.controller.IsResident(next) {
			// Preload so the first send on the new model starts warm.
			m.state = stateLoading
			return m, tea.Batch(
				flashStatus("loading "+model.DisplayName(next)),
				m.startWarmup(next),
			)
		}
		return m, flashStatus("model: " + model.DisplayName(next))

	case key.Matches(msg, keys.Export):
		if m.state != stateReady {
			return m, nil
		}
		return m, m.exportActive()

	case key.Matches(msg, keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSend submits the input field content.
func (m *Model) handleSend() (tea.Model, tea.Cmd) {
	if m.state != stateReady {
		return m, nil
	}
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.input.Reset()
	m.status = ""
	m.statusIsErr = false

	// The adapter loads the engine on demand, so a send against a cold
	// model just streams later than a warm one.
	m.state = stateStreaming
	cmd := m.startSend(input)
	m.refreshViewport(true)
	return m, cmd
}

// =============================================================================
// NAVIGATION AND ACTIONS
// =============================================================================

// selectAdjacent moves the active conversation up or down the list.
func (m *Model) selectAdjacent(delta int) {
	metas := m.controller.Conversations()
	active := m.controller.ActiveID()
	for i, meta := range metas {
		if meta.ID == active {
			next := i + delta
			if next >= 0 && next < len(metas) {
				if err := m.controller.SelectConversation(metas[next].ID); err == nil {
					m.refreshViewport(true)
				}
			}
			return
		}
	}
}

// cycleModel advances the selected model through the catalog.
func (m *Model) cycleModel() string {
	ids := model.CatalogIDs()
	current := m.controller.Model()
	for i, id := range ids {
		if id == current {
			next := ids[(i+1)%len(ids)]
			m.controller.SetModel(next)
			return next
		}
	}
	m.controller.SetModel(ids[0])
	return ids[0]
}

// exportActive writes the active conversation to the export directory.
func (m *Model) exportActive() tea.Cmd {
	format, err := export.ParseFormat(m.cfg.Export.DefaultFormat)
	if err != nil {
		format = export.FormatText
	}
	path, err := m.controller.ExportConversation(m.controller.ActiveID(), format, m.cfg.Export.OutputDir)
	if err != nil {
		m.setError(err.Error())
		return nil
	}
	return flashStatus("exported to " + path)
}

// setError puts an error in the status line; it stays until the next
// action replaces it.
func (m *Model) setError(text string) {
	m.status = text
	m.statusIsErr = true
}
