// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/chatterm/internal/model"
	"github.com/jeranaias/chatterm/internal/util"
)

// =============================================================================
// SESSION STORE
// =============================================================================

const (
	sessionFilePerm = 0600
	sessionDirPerm  = 0700

	// sessionPrefix names new session files chatlog_<YYYYMMDDHHMMSS>.json.
	sessionPrefix     = "chatlog_"
	sessionTimeLayout = "20060102150405"
)

// SessionStore handles session file persistence.
type SessionStore struct {
	// BaseDir is the directory for new session files.
	// Default: ~/.chatterm/sessions/
	BaseDir string
}

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	Path      string
	ID        string
	Model     string
	CreatedAt time.Time
	TurnCount int
	Preview   string // First user turn truncated
}

// NewSessionStore creates a store rooted at baseDir, creating it if needed.
func NewSessionStore(baseDir string) (*SessionStore, error) {
	baseDir = util.ExpandHome(baseDir)
	if err := os.MkdirAll(baseDir, sessionDirPerm); err != nil {
		return nil, &SessionError{Op: "init", Path: baseDir, Err: err}
	}
	return &SessionStore{BaseDir: baseDir}, nil
}

// NewSessionPath returns an unused path for a session started at now.
func (s *SessionStore) NewSessionPath(now time.Time) string {
	base := sessionPrefix + now.Format(sessionTimeLayout)
	path := filepath.Join(s.BaseDir, base+".json")
	for i := 2; fileExists(path); i++ {
		path = filepath.Join(s.BaseDir, fmt.Sprintf("%s-%d.json", base, i))
	}
	return path
}

// Resolve maps a bare file name, as typed in /load, to BaseDir when it does
// not exist relative to the working directory.
func (s *SessionStore) Resolve(name string) string {
	name = util.ExpandHome(name)
	if filepath.IsAbs(name) || filepath.Base(name) != name || fileExists(name) {
		return name
	}
	return filepath.Join(s.BaseDir, name)
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save writes the session to path atomically. The format follows the path's
// extension.
func (s *SessionStore) Save(path string, sess *model.Session) error {
	path = util.ExpandHome(path)
	data, err := Serialize(sess, FormatForPath(path))
	if err != nil {
		return &SessionError{Op: "save", Path: path, Err: err}
	}
	if err := util.WriteFileAtomic(path, data, sessionFilePerm, sessionDirPerm); err != nil {
		return &SessionError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load reads a session file. A missing file yields ErrSessionNotFound; bad
// content yields model.ErrCorruptSession.
func (s *SessionStore) Load(path string) (*model.Session, error) {
	path = util.ExpandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SessionError{Op: "load", Path: path, Err: ErrSessionNotFound}
		}
		return nil, &SessionError{Op: "load", Path: path, Err: err}
	}

	sess, err := Deserialize(data, FormatForPath(path))
	if err != nil {
		return nil, &SessionError{Op: "load", Path: path, Err: err}
	}
	return sess, nil
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns the sessions in BaseDir, most recent first. Files that fail to
// load are skipped.
func (s *SessionStore) List() ([]SessionMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []SessionMeta{}, nil
		}
		return nil, &SessionError{Op: "list", Path: s.BaseDir, Err: err}
	}

	metas := []SessionMeta{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		path := filepath.Join(s.BaseDir, name)
		sess, err := s.Load(path)
		if err != nil {
			continue
		}

		preview := ""
		for _, turn := range sess.Transcript.Turns() {
			if turn.Role == model.RoleUser {
				preview = util.TruncateWidth(turn.Content, 60)
				break
			}
		}

		metas = append(metas, SessionMeta{
			Path:      path,
			ID:        sess.Metadata.ID,
			Model:     sess.Metadata.ModelIdentifier,
			CreatedAt: sess.Metadata.CreatedAt,
			TurnCount: sess.Transcript.Len(),
			Preview:   preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// FormatSessionList renders metas as one line per session.
func FormatSessionList(metas []SessionMeta) string {
	if len(metas) == 0 {
		return "No saved sessions."
	}
	var sb strings.Builder
	for i, m := range metas {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s  %-24s %3d turns  %s",
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
			util.TruncateWidth(filepath.Base(m.Path), 24),
			m.TurnCount,
			m.Preview)
	}
	return sb.String()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session file doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = errors.New("session not found")

// SessionError records a failed store operation and the file involved.
type SessionError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap supports errors.Is and errors.As.
func (e *SessionError) Unwrap() error {
	return e.Err
}
