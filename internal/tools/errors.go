package tools

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySearchPath = errors.New("tools: search path is empty")
	ErrProgramNotFound = errors.New("tools: program not found")
	ErrInvalidProgram  = errors.New("tools: invalid program name")
	ErrCommandFailed   = errors.New("tools: command exited with errors")
	ErrSSHConfig       = errors.New("tools: invalid ssh settings")
)

// ConfigError reports a program that cannot be resolved to an executable.
type ConfigError struct {
	Program string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Program == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("command %s could not be found: %v", e.Program, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InvocationError reports a program that ran and exited nonzero, or could not
// be started. The program's own diagnostics were already written to the
// inherited streams.
type InvocationError struct {
	Program  string
	Args     []string
	ExitCode int32
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf(
		"command %s exited with errors (exit=%d args=%q); see message above for more information",
		e.Program,
		e.ExitCode,
		strings.Join(e.Args, " "),
	)
}

func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommandFailed}
	}
	return []error{ErrCommandFailed, e.Err}
}
