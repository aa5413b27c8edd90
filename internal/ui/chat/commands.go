// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatterm/internal/storage"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command. It may change the model through
// the pointer and returns any follow-up command.
type CommandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps command names to their handler functions. It is
// filled in init because /help reads it.
var commandHandlers map[string]CommandHandler

func init() {
	commandHandlers = map[string]CommandHandler{
		"help":     handleHelpCommand,
		"h":        handleHelpCommand,
		"?":        handleHelpCommand,
		"save":     handleSaveCommand,
		"s":        handleSaveCommand,
		"new":      handleNewCommand,
		"n":        handleNewCommand,
		"load":     handleLoadCommand,
		"l":        handleLoadCommand,
		"sessions": handleSessionsCommand,
		"list":     handleSessionsCommand,
		"quit":     handleQuitCommand,
		"q":        handleQuitCommand,
		"exit":     handleQuitCommand,
	}
}

// commandHelp lists the commands shown by /help, one per line.
var commandHelp = []string{
	"/save [path]   save the session (optionally to a new file)",
	"/new           start a new session",
	"/load <path>   open a saved session",
	"/sessions      list saved sessions",
	"/help          show this help",
	"/quit          save and exit",
}

// isCommand reports whether the draft is a slash command.
func isCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// parseCommand splits "/name arg..." into a lower-cased name and its args.
func parseCommand(input string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// runCommand dispatches a slash command.
func (m *Model) runCommand(input string) tea.Cmd {
	name, args := parseCommand(input)
	handler, ok := commandHandlers[name]
	if !ok {
		m.setError(fmt.Errorf("unknown command /%s, try /help", name))
		return nil
	}
	return handler(m, args)
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.showPanel(commandHelp)
	return nil
}

func handleSaveCommand(m *Model, args []string) tea.Cmd {
	var err error
	if len(args) > 0 {
		err = m.ctrl.SaveAs(strings.Join(args, " "))
	} else {
		err = m.ctrl.Save()
	}
	if err != nil {
		m.setError(err)
		return nil
	}
	m.setNotice("saved to " + m.ctrl.Path())
	return nil
}

func handleNewCommand(m *Model, _ []string) tea.Cmd {
	if err := m.ctrl.Reset(); err != nil {
		m.setError(err)
		return nil
	}
	m.resetView()
	m.setNotice("new session")
	return nil
}

func handleLoadCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		m.setError(fmt.Errorf("usage: /load <path>"))
		return nil
	}
	if err := m.ctrl.Load(strings.Join(args, " ")); err != nil {
		m.setError(err)
		return nil
	}
	m.resetView()
	m.setNotice("loaded " + filepath.Base(m.ctrl.Path()))
	return nil
}

func handleSessionsCommand(m *Model, _ []string) tea.Cmd {
	metas, err := m.ctrl.Sessions()
	if err != nil {
		m.setError(err)
		return nil
	}
	m.showPanel(strings.Split(storage.FormatSessionList(metas), "\n"))
	return nil
}

func handleQuitCommand(m *Model, _ []string) tea.Cmd {
	return m.quit()
}
