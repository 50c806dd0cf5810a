// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Health check command for the sonic CLI.
//
// Command: doctor
// Short:   Run system health checks and diagnostics
//
// Health checks performed:
//   1. Config Valid      - Configuration file parses and validates
//   2. Data Dir Writable - Session store directory can be written
//   3. Store Opens       - SQLite session store opens
//   4. Runtime Running   - Inference daemon responds
//   5. Models Cached     - Which catalog models are downloaded
//
// Exit codes:
//   0   All checks passed (warnings allowed)
//   1   One or more checks failed

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/sonic-tui/internal/config"
	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/runtime"
	"github.com/jeranaias/sonic-tui/internal/storage"
)

// =============================================================================
// CHECK RESULTS
// =============================================================================

type checkStatus int

const (
	checkPass checkStatus = iota
	checkWarn
	checkFail
)

type checkResult struct {
	name   string
	status checkStatus
	detail string
}

func (r checkResult) render() string {
	var symbol string
	switch r.status {
	case checkPass:
		symbol = commandStyle.Render("[ok]  ")
	case checkWarn:
		symbol = warningStyle.Render("[warn]")
	case checkFail:
		symbol = errorStyle.Render("[fail]")
	}
	out := fmt.Sprintf("%s %s", symbol, r.name)
	if r.detail != "" {
		out += infoStyle.Render("  " + r.detail)
	}
	return out
}

// =============================================================================
// DOCTOR COMMAND
// =============================================================================

// RunDoctor runs all health checks and exits non-zero on failure.
func RunDoctor(args *ArgParser) {
	fmt.Println(welcomeStyle.Render("sonic doctor"))
	fmt.Println()

	results := []checkResult{
		checkConfig(),
		checkDataDir(),
		checkStore(),
	}
	results = append(results, checkRuntime()...)

	failed := false
	for _, r := range results {
		fmt.Println(r.render())
		if r.status == checkFail {
			failed = true
		}
	}

	fmt.Println()
	if failed {
		fmt.Println(errorStyle.Render("some checks failed"))
		os.Exit(1)
	}
	fmt.Println(commandStyle.Render("all checks passed"))
}

func checkConfig() checkResult {
	cfg, err := config.Load()
	if err != nil {
		return checkResult{name: "config valid", status: checkFail, detail: err.Error()}
	}
	return checkResult{name: "config valid", status: checkPass, detail: "runtime " + cfg.Runtime.URL}
}

func checkDataDir() checkResult {
	cfg, err := config.Load()
	if err != nil {
		return checkResult{name: "data dir writable", status: checkFail, detail: err.Error()}
	}
	dataDir, err := cfg.ResolvedDataDir()
	if err != nil {
		return checkResult{name: "data dir writable", status: checkFail, detail: err.Error()}
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return checkResult{name: "data dir writable", status: checkFail, detail: err.Error()}
	}
	probe := filepath.Join(dataDir, ".doctor_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return checkResult{name: "data dir writable", status: checkFail, detail: err.Error()}
	}
	os.Remove(probe)
	return checkResult{name: "data dir writable", status: checkPass, detail: dataDir}
}

func checkStore() checkResult {
	cfg, err := config.Load()
	if err != nil {
		return checkResult{name: "session store opens", status: checkFail, detail: err.Error()}
	}
	dataDir, err := cfg.ResolvedDataDir()
	if err != nil {
		return checkResult{name: "session store opens", status: checkFail, detail: err.Error()}
	}
	store, err := storage.OpenDefault(dataDir)
	if err != nil {
		return checkResult{name: "session store opens", status: checkFail, detail: err.Error()}
	}
	store.Close()
	return checkResult{name: "session store opens", status: checkPass}
}

func checkRuntime() []checkResult {
	cfg, err := config.Load()
	if err != nil {
		return []checkResult{{name: "runtime running", status: checkFail, detail: err.Error()}}
	}
	client := runtime.NewClientWithConfig(&runtime.ClientConfig{BaseURL: cfg.Runtime.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.CheckRunning(ctx); err != nil {
		return []checkResult{{
			name:   "runtime running",
			status: checkFail,
			detail: "no daemon at " + cfg.Runtime.URL,
		}}
	}

	results := []checkResult{{name: "runtime running", status: checkPass, detail: cfg.Runtime.URL}}

	models, err := client.ListModels(ctx)
	if err != nil {
		results = append(results, checkResult{name: "models cached", status: checkWarn, detail: err.Error()})
		return results
	}

	cached := map[string]bool{}
	for _, dm := range models {
		cached[dm.ID] = dm.Cached
	}
	anyCached := false
	for _, id := range model.CatalogIDs() {
		if cached[id] {
			anyCached = true
			break
		}
	}
	if anyCached {
		results = append(results, checkResult{name: "models cached", status: checkPass})
	} else {
		results = append(results, checkResult{
			name:   "models cached",
			status: checkWarn,
			detail: "no model downloaded yet; run sonic warmup",
		})
	}
	return results
}
