// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model listing command for the sonic CLI.
//
// Command: models
// Short:   Show the model lineup and cache state
//
// Merges the built-in catalog with what the runtime daemon reports as
// cached, so the listing shows both what can be loaded and what would
// need a download first.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/runtime"
)

// RunModels prints the model lineup.
func RunModels(args *ArgParser) {
	app, err := NewApp()
	if err != nil {
		Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	// Cache state is best-effort: without the daemon the catalog still
	// prints, just without download info.
	cached := map[string]bool{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	daemonModels, daemonErr := app.RuntimeClient().ListModels(ctx)
	for _, dm := range daemonModels {
		cached[dm.ID] = dm.Cached
	}

	current := app.Controller.Model()
	for _, id := range model.CatalogIDs() {
		info, _ := model.GetModelInfo(id)

		marker := "  "
		if id == current {
			marker = commandStyle.Render("* ")
		}

		state := infoStyle.Render(fmt.Sprintf("~%.1f GB download", info.ApproxSizeGB))
		if cached[id] {
			state = commandStyle.Render("cached")
		}
		if app.Controller.IsResident(id) {
			state += commandStyle.Render(" · warmed up")
		}

		fmt.Printf("%s%-22s %s\n", marker, info.Name, state)
		fmt.Printf("    %s\n", infoStyle.Render(id))
	}

	if daemonErr != nil {
		if runtime.IsNotRunning(daemonErr) {
			fmt.Println(warningStyle.Render("\nruntime daemon is not running; cache state unavailable"))
		} else {
			fmt.Println(warningStyle.Render("\ncould not query runtime: " + daemonErr.Error()))
		}
	}
}
