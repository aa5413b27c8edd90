// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run prompts for the API key, model, and initial prompt.
//
// Setup runs when no API key is configured, or when -r is given. An empty
// API key with none stored before counts as declining setup.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/chatterm/internal/config"
)

// ErrSetupDeclined is returned when setup ends without an API key.
var ErrSetupDeclined = errors.New("setup declined: an API key is required (set CHATTERM_API_KEY or run chatterm -r)")

// =============================================================================
// PROMPTER
// =============================================================================

// Prompter reads answers to setup questions.
type Prompter struct {
	In  *bufio.Reader
	Out io.Writer
	// ReadSecret reads one line without echo.
	ReadSecret func() (string, error)
}

// NewTerminalPrompter prompts on stdin/stdout. The API key is read without
// echo when stdin is a terminal.
func NewTerminalPrompter() *Prompter {
	p := &Prompter{
		In:  bufio.NewReader(os.Stdin),
		Out: os.Stdout,
	}
	p.ReadSecret = func() (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return p.readLine()
		}
		keyBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out) // newline after hidden input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(keyBytes)), nil
	}
	return p
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Line asks for a value, returning defaultVal for an empty answer.
func (p *Prompter) Line(prompt, defaultVal string) (string, error) {
	if defaultVal != "" {
		fmt.Fprintf(p.Out, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(p.Out, "%s: ", prompt)
	}
	input, err := p.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return defaultVal, nil
		}
		return "", err
	}
	if input == "" {
		return defaultVal, nil
	}
	return input, nil
}

// Secret asks for a value without echoing it.
func (p *Prompter) Secret(prompt string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", prompt)
	value, err := p.ReadSecret()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return value, nil
}

// =============================================================================
// SETUP
// =============================================================================

// RunSetup asks for the API key, model, and initial prompt, updating cfg in
// place. Pressing Enter keeps the current value. The caller saves cfg.
func RunSetup(p *Prompter, cfg *config.Config) error {
	fmt.Fprintln(p.Out)
	fmt.Fprintln(p.Out, "chatterm setup")
	fmt.Fprintln(p.Out, strings.Repeat("=", 14))
	fmt.Fprintln(p.Out)

	prompt := "API key"
	if cfg.HasCredential() {
		prompt = "API key (Enter keeps the current key)"
	}
	key, err := p.Secret(prompt)
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}
	switch {
	case key != "":
		cfg.APIKey = key
	case !cfg.HasCredential():
		return ErrSetupDeclined
	}

	model, err := p.Line("Model", cfg.Model)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	cfg.Model = model

	initial, err := p.Line("Initial prompt", cfg.InitialPrompt)
	if err != nil {
		return fmt.Errorf("read initial prompt: %w", err)
	}
	cfg.InitialPrompt = initial

	fmt.Fprintln(p.Out)
	return nil
}
