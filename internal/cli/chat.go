// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL for the sonic CLI.
//
// Command: chat
// Short:   Start an interactive chat session in plain terminal mode
//
// Examples:
//   sonic chat                     Chat with the selected model
//   sonic chat --model <id>        Chat with a specific model
//
// Interactive commands:
//   /help            Show available commands
//   /new             Start a new conversation
//   /list            List conversations
//   /switch N        Switch to conversation N from /list
//   /delete          Delete the current conversation
//   /model [id]      Show or switch the model
//   /warmup          Load the selected model now
//   /profile NAME    Set the display name
//   /export [fmt]    Export the conversation (txt, md, json, html)
//   /quit            Exit
//   Ctrl+C           Cancel the current generation

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/sonic-tui/internal/config"
	"github.com/jeranaias/sonic-tui/internal/export"
	"github.com/jeranaias/sonic-tui/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the line editor with history loaded from disk.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.loadHistory()
	return cli
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt, recording it in history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		c.line.WriteHistory(f)
		f.Close()
	}
	c.line.Close()
}

// =============================================================================
// DELTA PRINTING
// =============================================================================

// deltaPrinter turns cumulative reply snapshots into printable suffixes.
// The stream delivers the full text after each chunk; the terminal only
// wants what is new.
type deltaPrinter struct {
	printed int
}

// Delta returns the unprinted suffix of the accumulated text. A snapshot
// shorter than what was already printed yields "".
func (p *deltaPrinter) Delta(accumulated string) string {
	if len(accumulated) <= p.printed {
		return ""
	}
	delta := accumulated[p.printed:]
	p.printed = len(accumulated)
	return delta
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// RunChat starts the interactive REPL.
func RunChat(args *ArgParser) {
	app, err := NewApp()
	if err != nil {
		Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	if modelID := args.Flag("model", "m"); modelID != "" {
		if err := app.Controller.SetModel(modelID); err != nil {
			Fatalf("%v", err)
		}
	}

	input := NewChatCLI()
	defer input.Close()

	printChatWelcome(app)

	for {
		line, err := input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both end the session.
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleChatCommand(app, line); quit {
				return
			}
			continue
		}

		streamReply(app, line)
	}
}

func printChatWelcome(app *App) {
	fmt.Println(welcomeStyle.Render("SONIC") + infoStyle.Render("  private chat, fully on this machine"))
	fmt.Println(infoStyle.Render("model: " + model.DisplayName(app.Controller.Model()) + "   /help for commands"))
	if !app.Controller.IsResident(app.Controller.Model()) {
		fmt.Println(warningStyle.Render("first message downloads the model; /warmup does it now"))
	}
	fmt.Println()
}

// streamReply sends one message and prints the reply as it arrives.
// Ctrl+C during generation cancels it and keeps the partial text.
func streamReply(app *App, text string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		app.Controller.Cancel()
	}()

	fmt.Print(commandStyle.Render("sonic> "))

	printer := &deltaPrinter{}
	err := app.Controller.Send(ctx, text, nil, func(accumulated string) {
		fmt.Print(printer.Delta(accumulated))
	})
	fmt.Println()

	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(warningStyle.Render("(cancelled)"))
		} else {
			fmt.Println(errorStyle.Render(err.Error()))
		}
	}
	fmt.Println()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleChatCommand executes a slash command; returns true to exit.
func handleChatCommand(app *App, line string) bool {
	parts := strings.Fields(line)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.Join(parts[1:], " ")
	}

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		printChatHelp()

	case "/new":
		if _, err := app.Controller.NewConversation(); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("started a new conversation"))

	case "/list":
		printConversationList(app)

	case "/switch":
		switchConversation(app, arg)

	case "/delete", "/del":
		if err := app.Controller.DeleteConversation(app.Controller.ActiveID()); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("conversation deleted; now on: " + app.Controller.Active().Title))

	case "/model":
		if arg == "" {
			printModelList(app)
			break
		}
		if err := app.Controller.SetModel(arg); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("model: " + model.DisplayName(arg)))

	case "/warmup":
		warmupModel(app, app.Controller.Model())

	case "/profile":
		if arg == "" {
			fmt.Println(infoStyle.Render("profile: " + app.Controller.Profile().Name))
			break
		}
		if err := app.Controller.SetProfileName(arg); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("profile: " + arg))

	case "/export":
		exportActive(app, arg)

	default:
		fmt.Println(warningStyle.Render("unknown command " + cmd + "; /help lists commands"))
	}
	return false
}

func printChatHelp() {
	help := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/switch N", "switch to conversation N"},
		{"/delete", "delete the current conversation"},
		{"/model [id]", "show or switch the model"},
		{"/warmup", "load the selected model now"},
		{"/profile NAME", "set your display name"},
		{"/export [fmt]", "export conversation (txt, md, json, html)"},
		{"/quit", "exit"},
	}
	for _, h := range help {
		fmt.Printf("  %s %s\n", commandStyle.Render(fmt.Sprintf("%-14s", h[0])), infoStyle.Render(h[1]))
	}
}

func printConversationList(app *App) {
	active := app.Controller.ActiveID()
	for i, meta := range app.Controller.Conversations() {
		marker := "  "
		if meta.ID == active {
			marker = commandStyle.Render("* ")
		}
		fmt.Printf("%s%2d  %s %s\n", marker, i+1, meta.Title,
			infoStyle.Render(fmt.Sprintf("(%d messages)", meta.MessageCount)))
	}
}

func switchConversation(app *App, arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println(warningStyle.Render("usage: /switch N (see /list)"))
		return
	}
	metas := app.Controller.Conversations()
	if index < 1 || index > len(metas) {
		fmt.Println(errorStyle.Render(fmt.Sprintf("no conversation %d", index)))
		return
	}
	if err := app.Controller.SelectConversation(metas[index-1].ID); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("switched to: " + metas[index-1].Title))
}

func printModelList(app *App) {
	current := app.Controller.Model()
	for _, id := range model.CatalogIDs() {
		info, _ := model.GetModelInfo(id)
		marker := "  "
		if id == current {
			marker = commandStyle.Render("* ")
		}
		resident := ""
		if app.Controller.IsResident(id) {
			resident = commandStyle.Render(" [resident]")
		}
		fmt.Printf("%s%s%s\n    %s\n", marker, info.Name, resident, infoStyle.Render(id))
	}
}

func exportActive(app *App, formatName string) {
	if formatName == "" {
		formatName = app.Config.Export.DefaultFormat
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	path, err := app.Controller.ExportConversation(app.Controller.ActiveID(), format, app.Config.Export.OutputDir)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("exported to " + path))
}
