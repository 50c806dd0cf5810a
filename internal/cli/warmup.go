// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// warmup.go - Model preloading command for the sonic CLI.
//
// Command: warmup [model-id]
// Short:   Download and load a model ahead of the first chat message

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/sonic-tui/internal/engine"
	"github.com/jeranaias/sonic-tui/internal/model"
)

// RunWarmup loads a model and reports progress until it is ready.
func RunWarmup(args *ArgParser) {
	app, err := NewApp()
	if err != nil {
		Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	modelID := args.Arg(0)
	if modelID == "" {
		modelID = app.Controller.Model()
	}

	warmupModel(app, modelID)
}

// warmupModel runs one warmup with a live progress line. Ctrl+C aborts.
func warmupModel(app *App, modelID string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		app.Controller.Cancel()
	}()

	fmt.Println(infoStyle.Render("loading " + model.DisplayName(modelID)))

	err := app.Controller.Warmup(ctx, modelID, func(r engine.ProgressReport) {
		// Overwrite the progress line in place.
		fmt.Printf("\r\033[K%s %3.0f%%  %s",
			warningStyle.Render(r.Phase.String()),
			r.Percent*100,
			infoStyle.Render(r.Raw))
	})
	fmt.Print("\r\033[K")

	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(warningStyle.Render("warmup cancelled"))
			return
		}
		fmt.Println(errorStyle.Render("warmup failed: " + err.Error()))
		return
	}
	fmt.Println(commandStyle.Render(model.DisplayName(modelID) + " ready"))
}
