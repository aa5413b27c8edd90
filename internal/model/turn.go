// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Bot"
	case RoleSystem:
		return "Sys"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a turn.
type Status string

const (
	// StatusComplete marks a turn whose content is final.
	StatusComplete Status = "complete"
	// StatusStreaming marks the in-flight assistant reply. Its content grows.
	StatusStreaming Status = "streaming"
	// StatusFailed marks a turn that ended in an error or was cancelled.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusComplete, StatusStreaming, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents one message unit in the conversation.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	Status  Status `json:"status" yaml:"status"`
}

// NewTurn creates a complete turn.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, Status: StatusComplete}
}

// NewStreamingTurn creates an empty placeholder that will receive chunks.
func NewStreamingTurn(role Role) Turn {
	return Turn{Role: role, Status: StatusStreaming}
}

// IsStreaming reports whether the turn is still receiving content.
func (t Turn) IsStreaming() bool {
	return t.Status == StatusStreaming
}

// IsFailed reports whether the turn ended in an error.
func (t Turn) IsFailed() bool {
	return t.Status == StatusFailed
}
