// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/chatterm/internal/cloud"
	"github.com/jeranaias/chatterm/internal/config"
	ctxwindow "github.com/jeranaias/chatterm/internal/context"
	"github.com/jeranaias/chatterm/internal/logging"
	"github.com/jeranaias/chatterm/internal/model"
	"github.com/jeranaias/chatterm/internal/session"
	"github.com/jeranaias/chatterm/internal/storage"
	"github.com/jeranaias/chatterm/internal/ui/chat"
	"github.com/jeranaias/chatterm/internal/ui/styles"
	"github.com/jeranaias/chatterm/internal/util"
)

// app is everything the chat screen needs, assembled before the terminal is
// taken over.
type app struct {
	cfg     *config.Config
	ctrl    *session.Controller
	logFile io.Closer
}

// Close releases the log file.
func (a *app) Close() error {
	if a.logFile == nil {
		return nil
	}
	return a.logFile.Close()
}

// Run is the default RunFunc: it prepares the session and runs the chat
// screen until the user quits.
func Run(ctx context.Context, opts *Options) error {
	a, err := prepare(opts, NewTerminalPrompter())
	if err != nil {
		return err
	}
	defer a.Close()

	m := chat.New(chat.Options{
		Controller: a.ctrl,
		Theme:      styles.NewTheme(),
		Context:    ctx,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		log.Error().Err(err).Msg("program failed")
		return fmt.Errorf("terminal: %w", err)
	}

	if fm, ok := final.(chat.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	log.Info().
		Str("session_id", a.ctrl.Session().Metadata.ID).
		Str("path", a.ctrl.Path()).
		Msg("session ended")
	return nil
}

// =============================================================================
// STARTUP
// =============================================================================

// prepare loads configuration, runs setup if needed, starts logging, and
// builds the controller. Any error here is a startup failure.
func prepare(opts *Options, p *Prompter) (*app, error) {
	// Setup prompts share the terminal with stderr until the log file is open.
	logging.Discard()

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		var err error
		if cfgPath, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := loadConfig(cfgPath, opts.Reconfigure, p)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	closer, err := logging.Init(logging.Options{
		File:       util.ExpandHome(logPath),
		Level:      cfg.LogLevel,
		WithCaller: strings.EqualFold(cfg.LogLevel, "debug"),
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logFile: closer}

	ctrl, err := newController(cfg, opts.SessionPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ctrl = ctrl

	log.Info().
		Str("version", Version).
		Str("model", cfg.Model).
		Str("session", ctrl.Path()).
		Int("turns", len(ctrl.Turns())).
		Msg("chatterm started")
	log.Debug().Str("config", cfg.String()).Msg("effective configuration")
	return a, nil
}

// loadConfig reads the config file and runs setup when forced or when no API
// key is available from the file or the environment. Environment values are
// never written back to the file.
func loadConfig(path string, reconfigure bool, p *Prompter) (*config.Config, error) {
	fileCfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	effective := *fileCfg
	effective.ApplyEnvOverrides()

	if reconfigure || !effective.HasCredential() {
		if err := RunSetup(p, fileCfg); err != nil {
			return nil, err
		}
		if err := fileCfg.Save(path); err != nil {
			return nil, fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(p.Out, "Configuration saved to %s\n", util.ExpandHome(path))
	}
	return config.Load(path)
}

// newController opens the session store, loads the -s session if given, and
// wires the transport and context window.
func newController(cfg *config.Config, sessionPath string) (*session.Controller, error) {
	store, err := storage.NewSessionStore(cfg.SessionsDir)
	if err != nil {
		return nil, err
	}

	var sess *model.Session
	if sessionPath != "" {
		sessionPath = util.ExpandHome(sessionPath)
		if sess, err = store.Load(sessionPath); err != nil {
			return nil, err
		}
	}

	transport := cloud.NewOpenAITransport(cloud.OpenAIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		IdleTimeout: cfg.Timeout(),
	})
	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("key", transport.KeyFingerprint()).
		Dur("idle_timeout", cfg.Timeout()).
		Msg("transport configured")

	truncator := ctxwindow.NewTruncator(&ctxwindow.TruncatorConfig{
		MaxTokens: cfg.MaxContextTokens,
		Counter:   ctxwindow.NewTokenCounter(cfg.Model),
	})

	return session.NewController(session.ControllerConfig{
		Session:       sess,
		Path:          sessionPath,
		Transport:     transport,
		Store:         store,
		Truncator:     truncator,
		InitialPrompt: cfg.InitialPrompt,
		Model:         cfg.Model,
	})
}
