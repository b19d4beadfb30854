// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package util

import "strings"

// QuoteArgForShell quotes an argument for safe use in a POSIX shell command.
// It uses single quotes and escapes any internal single quotes.
// Special handling for "~/" prefix allows shell tilde expansion (relies on remote shell behavior).
func QuoteArgForShell(arg string) string {
	if strings.HasPrefix(arg, "~/") {
		quotedPart := strings.ReplaceAll(arg[2:], "'", `'\''`)
		return `~/'` + quotedPart + `'`
	}

	quotedArg := strings.ReplaceAll(arg, "'", `'\''`)
	return `'` + quotedArg + `'`
}

// ShellCommand joins a command and its arguments into a single string suitable
// for a remote shell. The command itself is left unquoted so that PATH lookup
// and "~/" expansion still apply on the remote side.
func ShellCommand(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, command)
	for _, arg := range args {
		parts = append(parts, QuoteArgForShell(arg))
	}
	return strings.Join(parts, " ")
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
