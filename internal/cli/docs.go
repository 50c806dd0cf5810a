// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs.go - Built-in documentation command for the sonic CLI.
//
// Command: docs [topic]
// Short:   Show built-in documentation
//
// Topics:
//   (default)   Overview and quick start
//   privacy     What stays local and why
//   models      The model lineup

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// RunDocs renders a documentation topic to the terminal.
func RunDocs(args *ArgParser) {
	topic := args.Arg(0)

	var doc string
	switch topic {
	case "", "overview":
		doc = docsOverview
	case "privacy":
		doc = docsPrivacy
	case "models":
		doc = docsModels
	default:
		Fatalf("unknown topic %q (topics: overview, privacy, models)", topic)
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Println(doc)
		return
	}

	out, err := renderer.Render(doc)
	if err != nil {
		fmt.Println(doc)
		return
	}
	fmt.Print(out)
}

// =============================================================================
// DOCUMENT CONTENT
// =============================================================================

const docsOverview = `# SONIC

A private chat assistant that runs entirely on this machine.

## Quick start

1. Start the inference runtime daemon.
2. Run ` + "`sonic warmup`" + ` to download and load the default model.
3. Run ` + "`sonic`" + ` for the full-screen interface, or ` + "`sonic chat`" + `
   for a plain terminal session.

## Commands

| Command | Description |
|---------|-------------|
| ` + "`sonic`" + ` | Full-screen terminal interface |
| ` + "`sonic chat`" + ` | Plain REPL chat session |
| ` + "`sonic warmup [model]`" + ` | Preload a model |
| ` + "`sonic models`" + ` | Show the model lineup and cache state |
| ` + "`sonic list`" + ` | List saved conversations |
| ` + "`sonic export [N]`" + ` | Export a conversation to a file |
| ` + "`sonic doctor`" + ` | Run health checks |
| ` + "`sonic docs [topic]`" + ` | This documentation |
`

const docsPrivacy = `# Privacy

SONIC is offline by design.

- Models run locally through the inference runtime daemon on this
  machine. Prompts and replies are never sent to a remote service.
- Conversations, your profile, and model state live in a local SQLite
  file under ` + "`~/.sonic`" + `.
- The only network traffic is the one-time model download when a model
  is first warmed up.

Deleting ` + "`~/.sonic`" + ` removes every trace of your usage.
`

const docsModels = `# Models

| Model | Tier | Download |
|-------|------|----------|
| SONIC 1 (Standard) | Standard | ~4.6 GB |
| SONIC 2 (Pro) | Pro | ~4.1 GB |
| SONIC 3 (Lite) | Lite | ~3.9 GB |

Only one model is loaded at a time; switching models releases the
current one before the replacement loads. A model's first load downloads
its artifacts; afterwards loads come from the local cache.
`
