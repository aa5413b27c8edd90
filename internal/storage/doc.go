// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session file persistence.
//
// A session file holds the transcript and its metadata in a human-diffable,
// self-describing form. JSON is the default; files ending in .yaml or .yml are
// written and read as YAML with the same field names.
//
// # Key Types
//
//   - SessionStore: saves and loads session files under a base directory
//   - SessionMeta: lightweight metadata for listing saved sessions
//   - Format: the on-disk encoding chosen from a file extension
//
// # Usage
//
//	store, err := storage.NewSessionStore(dir)
//	path := store.NewSessionPath(time.Now())
//	err = store.Save(path, sess)
//	sess, err = store.Load(path)
//
// Loading is all-or-nothing: a malformed file yields model.ErrCorruptSession
// and no session.
package storage
