// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set by build)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Exit codes returned by Execute.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Options holds the parsed command line.
type Options struct {
	// SessionPath is the session file to continue (-s).
	SessionPath string
	// Reconfigure forces the setup prompts before starting (-r).
	Reconfigure bool
	// ConfigPath overrides ~/.chatterm/config.toml.
	ConfigPath string
	// LogLevel overrides the configured log level.
	LogLevel string
	// Model overrides the configured model for this run.
	Model string
}

// RunFunc starts the application with parsed options.
type RunFunc func(ctx context.Context, opts *Options) error

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the chatterm command. run is called once flags parse.
func NewRootCommand(run RunFunc) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "chatterm",
		Short: "Chat with an LLM in your terminal",
		Long: `chatterm is an interactive terminal chat client for OpenAI-compatible models.

Replies stream into a scrollable transcript. Every finished turn is saved to
a session file, so a conversation can be continued later with -s.

Keys:
  Enter          send the message
  Esc            cancel the reply in progress
  Up/Down, PgUp/PgDn, mouse wheel   scroll
  Ctrl+End       jump back to the latest message
  Ctrl+S         save
  Ctrl+Q         save and quit

Type /help inside the chat for session commands.`,
		Example: `  chatterm
  chatterm -s ~/.chatterm/sessions/2024-05-01_100000.json
  chatterm -r`,
		Args:          cobra.NoArgs,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.SessionPath, "session", "s", "", "load the transcript from this session file and keep saving to it")
	flags.BoolVarP(&opts.Reconfigure, "reconfigure", "r", false, "re-enter the API key, model, and initial prompt before starting")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default: ~/.chatterm/config.toml)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.Model, "model", "", "model to use for this run")

	return cmd
}

// Execute runs chatterm with os.Args and returns the exit code.
func Execute() int {
	return ExecuteArgs(os.Args[1:], os.Stdout, os.Stderr, Run)
}

// ExecuteArgs runs the root command with explicit arguments and streams.
func ExecuteArgs(args []string, stdout, stderr io.Writer, run RunFunc) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}
	cmd := NewRootCommand(run)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "chatterm: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}
