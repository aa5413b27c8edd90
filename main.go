// chatterm - an interactive terminal chat client for LLMs.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/chatterm/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
