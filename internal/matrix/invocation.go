package matrix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

var (
	// ErrUnsetVariable is returned when a command override references an
	// environment variable that is not set.
	ErrUnsetVariable = errors.New("environment variable not set")
	// ErrEmptyCommand is returned when a command override has no tokens.
	ErrEmptyCommand = errors.New("command is empty")
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ExpandCommand expands $VAR, ${VAR} and a leading ~ in an override command
// and splits the result shell-style into argv.
func ExpandCommand(command string, lookup LookupFunc) ([]string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	expanded := os.Expand(command, func(key string) string {
		v, ok := lookup(key)
		if !ok {
			missing = append(missing, key)
		}
		return v
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("expanding %q: %w: %s", command, ErrUnsetVariable, strings.Join(missing, ", "))
	}

	argv, err := shlex.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf("splitting %q: %w", expanded, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	for i, arg := range argv {
		argv[i] = expandHome(arg, lookup)
	}
	return argv, nil
}

func expandHome(arg string, lookup LookupFunc) string {
	if arg != "~" && !strings.HasPrefix(arg, "~/") {
		return arg
	}
	home, ok := lookup("HOME")
	if !ok || home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		} else {
			return arg
		}
	}
	return filepath.Join(home, strings.TrimPrefix(arg, "~"))
}

// ValidateCommand checks that an override command tokenizes to a non-empty
// argv before any variable is expanded.
func ValidateCommand(command string) error {
	argv, err := shlex.Split(command)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return ErrEmptyCommand
	}
	return nil
}
