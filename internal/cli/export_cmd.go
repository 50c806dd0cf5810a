// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Conversation export command for the sonic CLI.
//
// Command: export [N]
// Short:   Export a conversation to a file
//
// Examples:
//   sonic export                   Export the active conversation (default format)
//   sonic export 2                 Export conversation 2 (see "sonic list")
//   sonic export --format html     Export as a standalone HTML page
//   sonic export --out ~/notes     Write into a specific directory

package cli

import (
	"fmt"
	"strconv"

	"github.com/jeranaias/sonic-tui/internal/export"
)

// RunExport exports one conversation to a file.
func RunExport(args *ArgParser) {
	app, err := NewApp()
	if err != nil {
		Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	convID, err := resolveConversationID(app, args.Arg(0))
	if err != nil {
		Fatalf("%v", err)
	}

	formatName := args.Flag("format", "f")
	if formatName == "" {
		formatName = app.Config.Export.DefaultFormat
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		Fatalf("%v", err)
	}

	dir := args.Flag("out", "o")
	if dir == "" {
		dir = app.Config.Export.OutputDir
	}

	path, err := app.Controller.ExportConversation(convID, format, dir)
	if err != nil {
		Fatalf("export failed: %v", err)
	}
	fmt.Println(infoStyle.Render("exported to " + path))
}

// RunList prints the conversation list with the indexes export accepts.
func RunList(args *ArgParser) {
	app, err := NewApp()
	if err != nil {
		Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	active := app.Controller.ActiveID()
	for i, meta := range app.Controller.Conversations() {
		marker := "  "
		if meta.ID == active {
			marker = commandStyle.Render("* ")
		}
		fmt.Printf("%s%2d  %-34s %s\n", marker, i+1, meta.Title,
			infoStyle.Render(fmt.Sprintf("%d messages, updated %s",
				meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04"))))
	}
}

// resolveConversationID maps an optional 1-based index to a conversation
// id; empty means the active one.
func resolveConversationID(app *App, indexArg string) (string, error) {
	if indexArg == "" {
		return app.Controller.ActiveID(), nil
	}
	index, err := strconv.Atoi(indexArg)
	if err != nil {
		return "", fmt.Errorf("conversation index must be a number, got %q", indexArg)
	}
	metas := app.Controller.Conversations()
	if index < 1 || index > len(metas) {
		return "", fmt.Errorf("no conversation %d (1-%d available)", index, len(metas))
	}
	return metas[index-1].ID, nil
}
