// Package venv resolves a project's Python virtual environment into an
// explicit environment map for the child process. Nothing is sourced and the
// launcher's own environment is never mutated.
package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Environment is a resolved virtual environment.
type Environment struct {
	// Root is the absolute venv root directory.
	Root string
	// BinDir holds the venv's executables (bin, Scripts on Windows).
	BinDir string
	// Interpreter is the venv's python executable, empty if absent.
	Interpreter string
	// Activate is the activation artifact that was probed.
	Activate string
}

// MissingError reports an absent activation artifact. Callers treat it as a
// warning, not a failure: the launch continues with the ambient environment.
type MissingError struct {
	Expected string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("no venv activation artifact at %s", e.Expected)
}

func binDirName() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}

func activateName() string {
	if runtime.GOOS == "windows" {
		return "activate.bat"
	}
	return "activate"
}

func interpreterName() string {
	if runtime.GOOS == "windows" {
		return "python.exe"
	}
	return "python"
}

// Locate probes venvDir (relative to projectDir unless absolute) for an
// activation artifact and returns the resolved environment. A *MissingError
// is returned when the artifact does not exist.
func Locate(projectDir, venvDir string) (*Environment, error) {
	root := venvDir
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectDir, venvDir)
	}
	binDir := filepath.Join(root, binDirName())
	activate := filepath.Join(binDir, activateName())

	if _, err := os.Stat(activate); err != nil {
		return nil, &MissingError{Expected: activate}
	}

	env := &Environment{
		Root:     root,
		BinDir:   binDir,
		Activate: activate,
	}

	interp := filepath.Join(binDir, interpreterName())
	if _, err := os.Stat(interp); err == nil {
		env.Interpreter = interp
	} else {
		logrus.WithField("path", interp).Debug("venv has no interpreter, falling back to configured one")
	}

	return env, nil
}

// envKeyEqual compares environment variable names. Windows treats them
// case-insensitively; everywhere else a variable named "path" is distinct
// from PATH and must survive untouched.
func envKeyEqual(key, name string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(key, name)
	}
	return key == name
}

// Apply builds the child environment from base: VIRTUAL_ENV is set to the
// venv root, the venv bin dir is prepended to PATH, and PYTHONHOME is
// stripped so the venv's interpreter resolves its own stdlib.
func (e *Environment) Apply(base []string) []string {
	env := make([]string, 0, len(base)+2)
	pathSet := false

	for _, kv := range base {
		key := kv
		val := ""
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
			val = kv[i+1:]
		}
		switch {
		case envKeyEqual(key, "PYTHONHOME"), envKeyEqual(key, "VIRTUAL_ENV"):
			// dropped: would shadow the venv
		case envKeyEqual(key, "PATH"):
			env = append(env, key+"="+e.BinDir+string(os.PathListSeparator)+val)
			pathSet = true
		default:
			env = append(env, kv)
		}
	}

	if !pathSet {
		env = append(env, "PATH="+e.BinDir)
	}
	env = append(env, "VIRTUAL_ENV="+e.Root)
	return env
}
