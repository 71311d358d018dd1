package extract

import (
	"fmt"
	"os"

	"github.com/danmuck/fsubctl/internal/tools"
)

const (
	ProgramMRCalc         = "mrcalc"
	Program5TTGen         = "5ttgen"
	Program5TT2GMWMI      = "5tt2gmwmi"
	ProgramTck2Connectome = "tck2connectome"
	ProgramConnectome2Tck = "connectome2tck"
	ProgramVol2Surf       = "mri_vol2surf"
	ProgramSurf2Vol       = "mri_surf2vol"
)

// Programs lists every external binary the extraction steps may invoke.
var Programs = []string{
	ProgramMRCalc,
	Program5TTGen,
	Program5TT2GMWMI,
	ProgramTck2Connectome,
	ProgramConnectome2Tck,
	ProgramVol2Surf,
	ProgramSurf2Vol,
}

// Toolset pairs program lookup with execution. Each step resolves its
// programs immediately before running them.
type Toolset struct {
	locator tools.Locator
	runner  tools.StreamRunner
	isDir   DirChecker
}

// DirChecker reports whether path is a directory on the host the tools run on.
type DirChecker func(path string) (bool, error)

func localDir(path string) (bool, error) {
	info, err := os.Stat(path)
	return err == nil && info.IsDir(), nil
}

// RemoteDirChecker runs `test -d` through runner. Exit 1 means "not a
// directory"; any other failure is a transport or shell error.
func RemoteDirChecker(runner tools.CommandRunner) DirChecker {
	return func(path string) (bool, error) {
		_, stderr, code, err := runner.Run("test", "-d", path)
		switch code {
		case 0:
			return true, nil
		case 1:
			return false, nil
		}
		if err == nil {
			err = fmt.Errorf("exit %d: %s", code, stderr)
		}
		return false, fmt.Errorf("check %s: %w", path, err)
	}
}

// NewToolset defaults to the process PATH and local execution.
func NewToolset(locator tools.Locator, runner tools.StreamRunner) *Toolset {
	if locator == nil {
		locator = tools.NewPathLocator()
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Toolset{locator: locator, runner: runner, isDir: localDir}
}

// WithDirChecker returns a copy that classifies inputs through check.
func (t *Toolset) WithDirChecker(check DirChecker) *Toolset {
	next := *t
	if check == nil {
		check = localDir
	}
	next.isDir = check
	return &next
}

// Check resolves every named program and returns the first failure.
func (t *Toolset) Check(programs ...string) error {
	for _, program := range programs {
		if _, err := t.locator.Find(program); err != nil {
			return err
		}
	}
	return nil
}

func (t *Toolset) run(program string, args ...any) error {
	return t.runEnv(nil, program, args...)
}

func (t *Toolset) runEnv(env []string, program string, args ...any) error {
	path, err := t.locator.Find(program)
	if err != nil {
		return err
	}
	runner := t.runner
	if len(env) > 0 {
		if envRunner, ok := runner.(tools.EnvRunner); ok {
			runner = envRunner.WithEnv(env...)
		}
	}
	return tools.Invoke(runner, tools.Command{Program: path, Args: args})
}
