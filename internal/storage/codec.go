// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/chatterm/internal/model"
)

// =============================================================================
// FORMAT
// =============================================================================

// CurrentVersion is the session file version written by Serialize.
const CurrentVersion = 1

// Format is the encoding of a session file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatForPath picks the format from the file extension. Anything that is
// not .yaml or .yml is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// =============================================================================
// STORED TYPES
// =============================================================================

// Required fields are pointers so that an absent field can be told apart from
// a zero value. Unknown fields are ignored by both decoders.

type storedSession struct {
	Version    *int            `json:"version,omitempty" yaml:"version,omitempty"`
	Metadata   *storedMetadata `json:"metadata" yaml:"metadata"`
	Transcript *[]storedTurn   `json:"transcript" yaml:"transcript"`
}

type storedMetadata struct {
	SessionID       string  `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	CreatedAt       *string `json:"created_at" yaml:"created_at"`
	ModelIdentifier *string `json:"model_identifier" yaml:"model_identifier"`
}

type storedTurn struct {
	Role    *string `json:"role" yaml:"role"`
	Content *string `json:"content" yaml:"content"`
	Status  *string `json:"status" yaml:"status"`
}

// =============================================================================
// SERIALIZE / DESERIALIZE
// =============================================================================

// Serialize encodes a session in the given format.
func Serialize(sess *model.Session, format Format) ([]byte, error) {
	version := CurrentVersion
	createdAt := sess.Metadata.CreatedAt.UTC().Format(time.RFC3339Nano)
	modelID := sess.Metadata.ModelIdentifier

	turns := sess.Transcript.Turns()
	stored := make([]storedTurn, len(turns))
	for i, t := range turns {
		role, content, status := string(t.Role), t.Content, string(t.Status)
		stored[i] = storedTurn{Role: &role, Content: &content, Status: &status}
	}

	doc := storedSession{
		Version: &version,
		Metadata: &storedMetadata{
			SessionID:       sess.Metadata.ID,
			CreatedAt:       &createdAt,
			ModelIdentifier: &modelID,
		},
		Transcript: &stored,
	}

	switch format {
	case FormatYAML:
		// An indent of 2 keeps block scalars that start with a newline
		// readable by the decoder; the default of 4 does not.
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(&doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Deserialize decodes a session. Any malformed input, missing required field,
// or unknown enum value yields an error wrapping model.ErrCorruptSession and a
// nil session.
func Deserialize(data []byte, format Format) (*model.Session, error) {
	var doc storedSession
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, corrupt("malformed %s: %v", format, err)
	}

	if doc.Version != nil && *doc.Version < 1 {
		return nil, corrupt("bad version %d", *doc.Version)
	}
	if doc.Metadata == nil {
		return nil, corrupt("missing field %q", "metadata")
	}
	if doc.Metadata.CreatedAt == nil {
		return nil, corrupt("missing field %q", "metadata.created_at")
	}
	if doc.Metadata.ModelIdentifier == nil {
		return nil, corrupt("missing field %q", "metadata.model_identifier")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, *doc.Metadata.CreatedAt)
	if err != nil {
		return nil, corrupt("bad created_at %q", *doc.Metadata.CreatedAt)
	}
	if doc.Transcript == nil {
		return nil, corrupt("missing field %q", "transcript")
	}

	turns := make([]model.Turn, 0, len(*doc.Transcript))
	for i, st := range *doc.Transcript {
		switch {
		case st.Role == nil:
			return nil, corrupt("turn %d: missing field %q", i, "role")
		case st.Content == nil:
			return nil, corrupt("turn %d: missing field %q", i, "content")
		case st.Status == nil:
			return nil, corrupt("turn %d: missing field %q", i, "status")
		}
		turn := model.Turn{
			Role:    model.Role(*st.Role),
			Content: *st.Content,
			Status:  model.Status(*st.Status),
		}
		if !turn.Role.Valid() {
			return nil, corrupt("turn %d: unknown role %q", i, *st.Role)
		}
		if !turn.Status.Valid() {
			return nil, corrupt("turn %d: unknown status %q", i, *st.Status)
		}
		turns = append(turns, turn)
	}

	transcript, err := model.NewTranscriptFrom(turns)
	if err != nil {
		return nil, corrupt("%v", err)
	}

	return &model.Session{
		Transcript: transcript,
		Metadata: model.Metadata{
			ID:              doc.Metadata.SessionID,
			CreatedAt:       createdAt.UTC(),
			ModelIdentifier: *doc.Metadata.ModelIdentifier,
		},
	}, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrCorruptSession, fmt.Sprintf(format, args...))
}
