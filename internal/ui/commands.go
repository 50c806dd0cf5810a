// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sonic-tui/internal/config"
	"github.com/jeranaias/sonic-tui/internal/engine"
)

// =============================================================================
// STREAMING COMMANDS
// =============================================================================

// streamSession carries chunk updates from the controller's callback
// goroutine into the Bubble Tea update loop.
type streamSession struct {
	chunks chan string
	done   chan error
}

// startSend kicks off a send against the active conversation and returns
// the command that waits for its first update.
func (m *Model) startSend(input string) tea.Cmd {
	s := &streamSession{
		chunks: make(chan string, 64),
		done:   make(chan error, 1),
	}
	m.stream = s
	convID := m.controller.ActiveID()

	go func() {
		err := m.controller.Send(context.Background(), input, nil, func(accumulated string) {
			select {
			case s.chunks <- accumulated:
			default:
				// The UI is behind; newer snapshots supersede this one.
			}
		})
		s.done <- err
	}()

	return waitStream(s, convID)
}

// waitStream returns a command that delivers the next stream update.
func waitStream(s *streamSession, convID string) tea.Cmd {
	return func() tea.Msg {
		select {
		case accumulated := <-s.chunks:
			return streamChunkMsg{conversationID: convID, accumulated: accumulated}
		case err := <-s.done:
			return streamDoneMsg{conversationID: convID, err: err}
		}
	}
}

// =============================================================================
// WARMUP COMMANDS
// =============================================================================

// warmupSession carries load progress reports into the update loop.
type warmupSession struct {
	reports chan engine.ProgressReport
	done    chan error
}

// startWarmup begins loading the selected model and returns the command
// that waits for its first progress report.
func (m *Model) startWarmup(modelID string) tea.Cmd {
	s := &warmupSession{
		reports: make(chan engine.ProgressReport, 16),
		done:    make(chan error, 1),
	}
	m.warmup = s

	go func() {
		err := m.controller.Warmup(context.Background(), modelID, func(r engine.ProgressReport) {
			select {
			case s.reports <- r:
			default:
			}
		})
		s.done <- err
	}()

	return waitWarmup(s, modelID)
}

// waitWarmup returns a command that delivers the next warmup update.
func waitWarmup(s *warmupSession, modelID string) tea.Cmd {
	return func() tea.Msg {
		select {
		case report := <-s.reports:
			return loadProgressMsg{report: report}
		case err := <-s.done:
			return loadDoneMsg{modelID: modelID, err: err}
		}
	}
}

// =============================================================================
// CONFIG RELOAD COMMANDS
// =============================================================================

// waitConfigReload returns a command that delivers the next configuration
// reloaded from disk.
func waitConfigReload(w *config.Watcher) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-w.Changes()
		if !ok {
			return nil
		}
		return configReloadedMsg{cfg: cfg}
	}
}

// =============================================================================
// STATUS COMMANDS
// =============================================================================

// flashStatus shows a status message that clears itself after a delay.
func flashStatus(text string) tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return statusMsg(text) },
		tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} }),
	)
}
