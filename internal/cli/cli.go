// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the sonic command line interface: the
// interactive chat REPL and the management commands around it.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sonic-tui/internal/config"
	"github.com/jeranaias/sonic-tui/internal/engine"
	"github.com/jeranaias/sonic-tui/internal/runtime"
	"github.com/jeranaias/sonic-tui/internal/session"
	"github.com/jeranaias/sonic-tui/internal/storage"
	"github.com/jeranaias/sonic-tui/internal/ui/styles"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Blue).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// APP WIRING
// =============================================================================

// App bundles the pieces every command needs.
type App struct {
	Config     *config.Config
	Store      *storage.SQLiteStore
	Controller *session.Controller
}

// NewApp loads configuration and opens the session store and controller.
// Callers must Close the app when done.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.ResolvedDataDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenDefault(dataDir)
	if err != nil {
		return nil, err
	}

	client := runtime.NewClientWithConfig(&runtime.ClientConfig{BaseURL: cfg.Runtime.URL})
	controller, err := session.NewController(store, engine.NewAdapter(client))
	if err != nil {
		store.Close()
		return nil, err
	}

	if err := controller.SetModel(cfg.DefaultModel); err != nil {
		store.Close()
		return nil, fmt.Errorf("config default_model: %w", err)
	}

	return &App{Config: cfg, Store: store, Controller: controller}, nil
}

// RuntimeClient returns a client for the configured daemon address.
func (a *App) RuntimeClient() *runtime.Client {
	return runtime.NewClientWithConfig(&runtime.ClientConfig{BaseURL: a.Config.Runtime.URL})
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

// Fatalf prints an error and exits non-zero.
func Fatalf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
