// sonic TUI - A private, fully local chat assistant for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/sonic-tui/internal/cli"
	"github.com/jeranaias/sonic-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cmd := ""
	rest := []string{}
	if len(os.Args) > 1 {
		cmd = os.Args[1]
		rest = os.Args[2:]
	}
	args := cli.NewArgParser(rest)

	switch cmd {
	case "":
		runTUI()
	case "chat":
		cli.RunChat(args)
	case "warmup":
		cli.RunWarmup(args)
	case "models":
		cli.RunModels(args)
	case "list":
		cli.RunList(args)
	case "export":
		cli.RunExport(args)
	case "doctor":
		cli.RunDoctor(args)
	case "docs":
		cli.RunDocs(args)
	case "version", "--version", "-v":
		fmt.Printf("sonic %s (%s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runTUI() {
	app, err := cli.NewApp()
	if err != nil {
		cli.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	if err := ui.Run(app.Controller, app.Config); err != nil {
		cli.Fatalf("%v", err)
	}
}

func printUsage() {
	fmt.Print(`sonic - private local chat

Usage:
  sonic                Full-screen terminal interface
  sonic chat           Plain REPL chat session
  sonic warmup [id]    Preload a model
  sonic models         Show the model lineup and cache state
  sonic list           List saved conversations
  sonic export [N]     Export a conversation to a file
  sonic doctor         Run health checks
  sonic docs [topic]   Built-in documentation
  sonic version        Show version information

Run "sonic docs" for a longer introduction.
`)
}
