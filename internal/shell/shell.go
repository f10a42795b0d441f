// Package shell resolves the requested command interpreter and wraps command
// lines into the argument vector that interpreter expects. Selection only
// affects how the process is launched; session handling downstream is
// identical for every kind.
package shell

import (
	"fmt"
	"strings"
)

// Kind identifies a command interpreter.
type Kind string

const (
	// KindDefault selects the platform's native shell.
	KindDefault Kind = "default"
	KindBash    Kind = "bash"
	KindZsh     Kind = "zsh"
	// KindPowerShell selects Windows PowerShell, KindPwsh PowerShell Core.
	KindPowerShell Kind = "powershell"
	KindPwsh       Kind = "pwsh"
	// KindCmd selects cmd.exe.
	KindCmd Kind = "cmd"
	// KindWSL routes the command through the Windows Subsystem for Linux.
	KindWSL Kind = "wsl"
)

// Resolve maps a user-supplied shell name to a Kind supported on this
// platform. An empty name selects the platform default.
func Resolve(name string) (Kind, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return defaultKind, nil
	}
	kind := Kind(strings.TrimSuffix(trimmed, ".exe"))
	for _, supported := range supportedKinds {
		if kind == supported {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unsupported shell %q (supported: %s)", name, supportedNames())
}

func supportedNames() string {
	names := make([]string, len(supportedKinds))
	for i, kind := range supportedKinds {
		names[i] = string(kind)
	}
	return strings.Join(names, ", ")
}
