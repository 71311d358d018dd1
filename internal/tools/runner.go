package tools

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandRunner abstracts captured command execution, used for lookups.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, []byte, int32, error)
}

// StreamRunner runs a command to completion with its streams attached.
// Nil writers mean the caller's own stdout and stderr.
type StreamRunner interface {
	RunStreaming(name string, args []string, stdout, stderr io.Writer) (int32, error)
}

// EnvRunner is implemented by runners that can add environment entries
// (KEY=VALUE) to the commands they start.
type EnvRunner interface {
	WithEnv(env ...string) StreamRunner
}

// ExecRunner executes commands on the local host.
type ExecRunner struct {
	Env []string
}

func (r ExecRunner) command(name string, args []string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd
}

func (r ExecRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := r.command(name, args)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), exitCode(err), err
}

func (r ExecRunner) RunStreaming(name string, args []string, stdout, stderr io.Writer) (int32, error) {
	cmd := r.command(name, args)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}

	err := cmd.Run()
	return exitCode(err), err
}

func (r ExecRunner) WithEnv(env ...string) StreamRunner {
	merged := make([]string, 0, len(r.Env)+len(env))
	merged = append(merged, r.Env...)
	merged = append(merged, env...)
	return ExecRunner{Env: merged}
}

func exitCode(err error) int32 {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return int32(code)
		}
		return 1
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
		return 127
	}
	return 1
}
