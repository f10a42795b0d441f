//go:build windows

package shell

var (
	defaultKind    = KindCmd
	supportedKinds = []Kind{KindCmd, KindPowerShell, KindPwsh, KindWSL, KindBash}
)

// Wrap builds the argument vector that runs command under the given kind.
// KindBash is an alias for KindWSL here, matching how callers address the
// Linux subsystem on Windows hosts.
func Wrap(kind Kind, command string) []string {
	switch kind {
	case KindPowerShell:
		return []string{"powershell.exe", "-NoProfile", "-Command", command}
	case KindPwsh:
		return []string{"pwsh.exe", "-NoProfile", "-Command", command}
	case KindWSL, KindBash:
		return []string{"wsl.exe", "-e", "bash", "-c", command}
	default:
		return []string{"cmd.exe", "/C", command}
	}
}
