package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter writes a shell script that records its argv, cwd and
// environment, then exits with $PYLAUNCH_TEST_EXIT.
const fakeInterpreter = `#!/bin/sh
pwd > "$PYLAUNCH_TEST_OUT/cwd"
printf '%s\n' "$@" > "$PYLAUNCH_TEST_OUT/args"
env > "$PYLAUNCH_TEST_OUT/env"
exit "${PYLAUNCH_TEST_EXIT:-0}"
`

func writeFakeInterpreter(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(fakeInterpreter), 0755))
}

func setupFake(t *testing.T, exit string) (projectDir, outDir, interp string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter is a shell script")
	}
	projectDir = t.TempDir()
	outDir = t.TempDir()
	interp = filepath.Join(t.TempDir(), "python")
	writeFakeInterpreter(t, interp)
	t.Setenv("PYLAUNCH_TEST_OUT", outDir)
	t.Setenv("PYLAUNCH_TEST_EXIT", exit)
	return projectDir, outDir, interp
}

func readOut(t *testing.T, outDir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, name))
	require.NoError(t, err)
	return string(data)
}

func TestCheckProjectDirMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")
	l := New(Options{ProjectDir: path})

	err := l.CheckProjectDir()
	require.Error(t, err)

	var dirErr *DirectoryError
	require.True(t, errors.As(err, &dirErr))
	assert.Equal(t, path, dirErr.Path)
	assert.Contains(t, err.Error(), path)
}

func TestCheckProjectDirNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	l := New(Options{ProjectDir: path})
	var dirErr *DirectoryError
	require.True(t, errors.As(l.CheckProjectDir(), &dirErr))
}

func TestRunForwardsArgsVerbatim(t *testing.T) {
	projectDir, outDir, interp := setupFake(t, "0")

	l := New(Options{
		ProjectDir:  projectDir,
		Module:      "app",
		Interpreter: interp,
	})

	args := []string{"--verbose", "two words", "--count=3"}
	res, err := l.Run(context.Background(), nil, args)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Greater(t, res.PID, 0)
	assert.False(t, res.VenvUsed)

	got := strings.Split(strings.TrimRight(readOut(t, outDir, "args"), "\n"), "\n")
	assert.Equal(t, append([]string{"-m", "app"}, args...), got)
}

func TestRunChildWorkingDirectory(t *testing.T) {
	projectDir, outDir, interp := setupFake(t, "0")

	before, err := os.Getwd()
	require.NoError(t, err)

	l := New(Options{ProjectDir: projectDir, Module: "app", Interpreter: interp})
	_, err = l.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after, "launcher must not mutate its own cwd")

	wantDir, err := filepath.EvalSymlinks(projectDir)
	require.NoError(t, err)
	assert.Equal(t, wantDir, strings.TrimSpace(readOut(t, outDir, "cwd")))
}

func TestRunPropagatesExitCode(t *testing.T) {
	projectDir, _, interp := setupFake(t, "3")

	l := New(Options{ProjectDir: projectDir, Module: "app", Interpreter: interp})
	res, err := l.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Positive(t, res.Duration)
}

func TestRunPrefersVenvInterpreter(t *testing.T) {
	projectDir, outDir, _ := setupFake(t, "0")
	t.Setenv("PYTHONHOME", "/opt/python")

	// Venv whose python is the fake interpreter.
	binDir := filepath.Join(projectDir, "venv", "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "activate"), []byte("# activate\n"), 0644))
	writeFakeInterpreter(t, filepath.Join(binDir, "python"))

	l := New(Options{
		ProjectDir:  projectDir,
		VenvDir:     "venv",
		Module:      "app",
		Interpreter: "/definitely/not/here",
	})

	env, err := l.ProbeVenv()
	require.NoError(t, err)

	res, err := l.Run(context.Background(), env, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.VenvUsed)

	childEnv := readOut(t, outDir, "env")
	assert.Contains(t, childEnv, "VIRTUAL_ENV="+env.Root+"\n")
	assert.NotContains(t, childEnv, "PYTHONHOME=")

	for _, kv := range strings.Split(childEnv, "\n") {
		if strings.HasPrefix(kv, "PATH=") {
			assert.True(t, strings.HasPrefix(kv, "PATH="+binDir+string(os.PathListSeparator)),
				"venv bin dir must lead PATH: %s", kv)
		}
	}
}

func TestRunSpawnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter is a shell script")
	}
	projectDir := t.TempDir()

	l := New(Options{
		ProjectDir:  projectDir,
		Module:      "app",
		Interpreter: filepath.Join(projectDir, "missing-python"),
	})

	res, err := l.Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Nil(t, res)

	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Contains(t, spawnErr.Error(), "missing-python")
}
