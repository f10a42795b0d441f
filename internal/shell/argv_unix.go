//go:build !windows

package shell

var (
	defaultKind    = KindDefault
	supportedKinds = []Kind{KindDefault, KindBash, KindZsh}
)

// Wrap builds the argument vector that runs command under the given kind.
func Wrap(kind Kind, command string) []string {
	switch kind {
	case KindBash:
		return []string{"bash", "-c", command}
	case KindZsh:
		return []string{"zsh", "-c", command}
	default:
		return []string{"/bin/sh", "-c", command}
	}
}
