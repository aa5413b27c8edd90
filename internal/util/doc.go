// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the session store, the config
// layer and the terminal views.
//
// # Key Functions
//
//   - WriteFileAtomic: crash-safe file writing with fsync and rename
//   - FitWidth: display-width aware truncation for status lines
//   - ExpandHome: resolves a leading "~" in configured paths
//
// # Usage
//
//	// Write files atomically to prevent data loss
//	err := util.WriteFileAtomic(path, data, 0600, 0700)
package util
