package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Locator resolves a program name to an invocable path.
type Locator interface {
	Find(program string) (string, error)
}

// PathLocator searches an ordered, os.PathListSeparator-delimited list of
// directories.
type PathLocator struct {
	SearchPath string
}

// NewPathLocator returns a locator over the process PATH.
func NewPathLocator() PathLocator {
	return PathLocator{SearchPath: os.Getenv("PATH")}
}

// Find returns the first directory entry that exists and is executable. The
// whole search path is checked before reporting ErrProgramNotFound.
func (l PathLocator) Find(program string) (string, error) {
	program, err := validateProgram(program)
	if err != nil {
		return "", err
	}

	dirs := splitSearchPath(l.SearchPath)
	if len(dirs) == 0 {
		return "", &ConfigError{Program: program, Err: ErrEmptySearchPath}
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, program)
		if isExecutable(candidate) {
			log.Debug().Str("program", program).Str("path", candidate).Msg("tools locate")
			return candidate, nil
		}
	}
	return "", &ConfigError{Program: program, Err: ErrProgramNotFound}
}

// StaticLocator resolves pinned program paths and defers everything else to
// Fallback. Unchecked skips the local executable test, for paths that live
// on a remote host.
type StaticLocator struct {
	Paths     map[string]string
	Fallback  Locator
	Unchecked bool
}

func (l StaticLocator) Find(program string) (string, error) {
	program, err := validateProgram(program)
	if err != nil {
		return "", err
	}

	if pinned := strings.TrimSpace(l.Paths[program]); pinned != "" {
		if !l.Unchecked && !isExecutable(pinned) {
			return "", &ConfigError{Program: program, Err: ErrProgramNotFound}
		}
		return pinned, nil
	}
	if l.Fallback == nil {
		return "", &ConfigError{Program: program, Err: ErrProgramNotFound}
	}
	return l.Fallback.Find(program)
}

// RemoteLocator resolves programs with `command -v` on the runner's host.
type RemoteLocator struct {
	Runner CommandRunner
}

func (l RemoteLocator) Find(program string) (string, error) {
	program, err := validateProgram(program)
	if err != nil {
		return "", err
	}

	stdout, _, code, err := l.Runner.Run("command", "-v", program)
	if err != nil || code != 0 {
		return "", &ConfigError{Program: program, Err: ErrProgramNotFound}
	}
	resolved, _, _ := strings.Cut(strings.TrimSpace(string(stdout)), "\n")
	resolved = strings.TrimSpace(resolved)
	if resolved == "" {
		return "", &ConfigError{Program: program, Err: ErrProgramNotFound}
	}
	return resolved, nil
}

func validateProgram(program string) (string, error) {
	program = strings.TrimSpace(program)
	if program == "" || strings.ContainsRune(program, '/') || strings.ContainsRune(program, os.PathSeparator) {
		return "", &ConfigError{Program: program, Err: ErrInvalidProgram}
	}
	return program, nil
}

func splitSearchPath(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	out := make([]string, 0)
	for _, dir := range filepath.SplitList(raw) {
		dir = strings.Trim(strings.TrimSpace(dir), `"`)
		if dir == "" {
			continue
		}
		out = append(out, dir)
	}
	return out
}
