// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the full-screen terminal interface for sonic.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/sonic-tui/internal/config"
	"github.com/jeranaias/sonic-tui/internal/engine"
	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/session"
)

// =============================================================================
// UI STATE
// =============================================================================

// uiState is what the interface is currently doing.
type uiState int

const (
	stateReady     uiState = iota // accepting input
	stateStreaming                // reply streaming in
	stateLoading                  // engine load in progress
)

// sidebarWidth is the fixed width of the conversation list column.
const sidebarWidth = 28

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the sonic TUI.
type Model struct {
	controller *session.Controller
	cfg        *config.Config

	state  uiState
	width  int
	height int

	// Components
	viewport viewport.Model
	input    textinput.Model
	loadBar  progress.Model
	keys     KeyMap

	// Markdown rendering for assistant replies; nil when disabled.
	renderer *glamour.TermRenderer

	// Sidebar
	showSidebar bool

	// In-flight streaming state
	stream *streamSession

	// Engine load state
	warmup     *warmupSession
	loadReport engine.ProgressReport

	// Transient status line text; errors stick until the next action.
	status      string
	statusIsErr bool

	// cfgWatcher delivers configurations reloaded from disk; nil when the
	// config file cannot be watched.
	cfgWatcher *config.Watcher
}

// New builds the TUI model over a session controller.
func New(controller *session.Controller, cfg *config.Config) *Model {
	input := textinput.New()
	input.Placeholder = "Ask anything..."
	input.Prompt = "> "
	input.Focus()
	input.CharLimit = 0

	vp := viewport.New(0, 0)

	loadBar := progress.New(progress.WithDefaultGradient())

	var renderer *glamour.TermRenderer
	if cfg.UI.MarkdownRendering {
		// Renderer creation only fails on invalid options; fall back to
		// plain text if it does.
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		); err == nil {
			renderer = r
		}
	}

	return &Model{
		controller:  controller,
		cfg:         cfg,
		viewport:    vp,
		input:       input,
		loadBar:     loadBar,
		keys:        DefaultKeyMap(),
		renderer:    renderer,
		showSidebar: cfg.UI.ShowSidebar,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.cfgWatcher != nil {
		return tea.Batch(textinput.Blink, waitConfigReload(m.cfgWatcher))
	}
	return textinput.Blink
}

// Run starts the TUI and blocks until it exits. Edits to the config file
// while the TUI is up are applied live.
func Run(controller *session.Controller, cfg *config.Config) error {
	lipgloss.SetColorProfile(termenv.ColorProfile())

	m := New(controller, cfg)
	if path, err := config.ConfigPath(); err == nil {
		if watcher, err := config.NewWatcher(path); err == nil {
			m.cfgWatcher = watcher
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}

// applyConfig applies a reloaded configuration to the running interface.
// The selected model is not switched mid-session; the default model applies
// on the next start.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.showSidebar = cfg.UI.ShowSidebar

	if !cfg.UI.MarkdownRendering {
		m.renderer = nil
	} else if m.renderer == nil {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		); err == nil {
			m.renderer = r
		}
	}

	if m.width > 0 {
		m.resize()
	}
}

// =============================================================================
// LAYOUT HELPERS
// =============================================================================

// chatWidth returns the width available to the conversation column.
func (m *Model) chatWidth() int {
	w := m.width
	if m.showSidebar {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// resize recomputes component dimensions after a terminal size change.
func (m *Model) resize() {
	// Header, input frame, and status bar take up the vertical margins.
	contentHeight := m.height - 6
	if contentHeight < 3 {
		contentHeight = 3
	}
	m.viewport.Width = m.chatWidth()
	m.viewport.Height = contentHeight
	m.input.Width = m.chatWidth() - 6
	m.loadBar.Width = m.chatWidth() - 10

	if m.renderer != nil {
		wrap := m.chatWidth() - 4
		if wrap < 40 {
			wrap = 40
		}
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		); err == nil {
			m.renderer = r
		}
	}

	m.refreshViewport(true)
}

// modelLabel returns the display name of the selected model.
func (m *Model) modelLabel() string {
	return model.DisplayName(m.controller.Model())
}
