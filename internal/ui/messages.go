// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/jeranaias/sonic-tui/internal/config"
	"github.com/jeranaias/sonic-tui/internal/engine"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// streamChunkMsg delivers the accumulated reply text after a streamed chunk.
type streamChunkMsg struct {
	conversationID string
	accumulated    string
}

// streamDoneMsg signals that a send finished, successfully or not.
type streamDoneMsg struct {
	conversationID string
	err            error
}

// loadProgressMsg delivers a normalized engine load progress report.
type loadProgressMsg struct {
	report engine.ProgressReport
}

// loadDoneMsg signals that a warmup finished.
type loadDoneMsg struct {
	modelID string
	err     error
}

// configReloadedMsg carries a configuration reloaded from disk.
type configReloadedMsg struct {
	cfg *config.Config
}

// statusMsg sets a transient status line message.
type statusMsg string

// clearStatusMsg clears the transient status line message.
type clearStatusMsg struct{}
