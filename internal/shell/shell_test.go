package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/swish/internal/command"
	"github.com/marcelocantos/swish/internal/pipeline"
	"github.com/marcelocantos/swish/internal/policy"
)

func need(t *testing.T, progs ...string) {
	t.Helper()
	for _, p := range progs {
		if _, err := exec.LookPath(p); err != nil {
			t.Skipf("%s not available", p)
		}
	}
}

func newShell(out *bytes.Buffer) (*Shell, *int) {
	starts := 0
	o := &pipeline.Orchestrator{
		Runner: &command.Runner{Stderr: &bytes.Buffer{}},
		Stdout: out,
		Start: func(p *command.Prepared) error {
			starts++
			return p.Start()
		},
	}
	return &Shell{Orchestrator: o}, &starts
}

func TestExecuteSingleCommand(t *testing.T) {
	need(t, "echo")
	var out bytes.Buffer
	s, _ := newShell(&out)

	rep, err := s.Execute(context.Background(), []string{"echo", "hello"})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.ExitCode)
	assert.Equal(t, "hello\n", out.String())
	require.Len(t, rep.Steps, 1)
	assert.Nil(t, rep.Steps[0].Pipeline)
}

func TestExecutePipelineStep(t *testing.T) {
	need(t, "echo", "tr")
	var out bytes.Buffer
	s, _ := newShell(&out)

	rep, err := s.Execute(context.Background(), []string{"echo", "hi", "|", "tr", "h", "H"})
	require.NoError(t, err)
	assert.Equal(t, "Hi\n", out.String())
	require.NotNil(t, rep.Steps[0].Pipeline)
	assert.Len(t, rep.Steps[0].Pipeline.Stages, 2)
}

func TestExecuteAndThen(t *testing.T) {
	need(t, "echo", "true", "false")
	var out bytes.Buffer
	s, _ := newShell(&out)

	rep, err := s.Execute(context.Background(), []string{"true", "&&", "echo", "yes"})
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out.String())
	assert.Equal(t, 0, rep.ExitCode)

	out.Reset()
	rep, err = s.Execute(context.Background(), []string{"false", "&&", "echo", "no"})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, 1, rep.ExitCode)
	assert.True(t, rep.Steps[1].Skipped)
}

func TestExecuteOrElse(t *testing.T) {
	need(t, "echo", "true", "false")
	var out bytes.Buffer
	s, _ := newShell(&out)

	rep, err := s.Execute(context.Background(), []string{"false", "||", "echo", "recovered"})
	require.NoError(t, err)
	assert.Equal(t, "recovered\n", out.String())
	assert.Equal(t, 0, rep.ExitCode)

	out.Reset()
	rep, err = s.Execute(context.Background(), []string{"true", "||", "echo", "no"})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.True(t, rep.Steps[1].Skipped)
}

func TestExecuteChain(t *testing.T) {
	need(t, "echo", "false")
	var out bytes.Buffer
	s, _ := newShell(&out)

	// false && skipped || echo yes ; echo done
	rep, err := s.Execute(context.Background(), []string{
		"false", "&&", "echo", "no", "||", "echo", "yes", ";", "echo", "done",
	})
	require.NoError(t, err)
	assert.Equal(t, "yes\ndone\n", out.String())
	assert.Equal(t, 0, rep.ExitCode)
	assert.True(t, rep.Steps[1].Skipped)
}

func TestExecuteSequentialKeepsLastStatus(t *testing.T) {
	need(t, "true", "sh")
	var out bytes.Buffer
	s, _ := newShell(&out)

	rep, err := s.Execute(context.Background(), []string{"true", ";", "sh", "-c", "exit 4"})
	require.NoError(t, err)
	assert.Equal(t, 4, rep.ExitCode)
}

func TestExecuteMissingProgram(t *testing.T) {
	var out bytes.Buffer
	s, _ := newShell(&out)

	rep, err := s.Execute(context.Background(), []string{"swish-no-such-program-xyz"})
	require.NoError(t, err)
	assert.Equal(t, command.StatusNotFound, rep.ExitCode)
	assert.Len(t, rep.Errors(), 1)
}

func TestExecuteParseErrorRunsNothing(t *testing.T) {
	var out bytes.Buffer
	s, starts := newShell(&out)

	_, err := s.Execute(context.Background(), []string{"echo", "a", ";", "echo", "b", "|"})
	assert.ErrorIs(t, err, pipeline.ErrEmptyCommand)
	assert.Zero(t, *starts)
	assert.Empty(t, out.String())
}

func TestExecutePolicyDeny(t *testing.T) {
	need(t, "echo", "tr")
	e, err := policy.Compile("deny.star", []byte(`
def check(stages):
    for argv in stages:
        if argv[0] == "tr":
            return "no tr"
    return True
`))
	require.NoError(t, err)

	var out bytes.Buffer
	s, starts := newShell(&out)
	s.Policy = e

	rep, err := s.Execute(context.Background(), []string{"echo", "hi", "|", "tr", "h", "H", "||", "echo", "fallback"})
	require.NoError(t, err)
	assert.Zero(t, *starts, "denied pipeline must not start")
	assert.Equal(t, "fallback\n", out.String())

	var denied *policy.DeniedError
	require.True(t, errors.As(rep.Steps[0].Err, &denied))
	assert.Equal(t, "no tr", denied.Reason)
	assert.Equal(t, command.StatusFailure, rep.Steps[0].ExitCode)
}

func TestExecutePolicyError(t *testing.T) {
	e, err := policy.Compile("broken.star", []byte("def check(stages):\n    return 1 // 0\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	s, starts := newShell(&out)
	s.Policy = e

	rep, err := s.Execute(context.Background(), []string{"a", "|", "b"})
	require.NoError(t, err)
	assert.Equal(t, StatusSetup, rep.ExitCode)
	assert.Zero(t, *starts)
	assert.Error(t, rep.Steps[0].Err)
}

func TestExecuteRedirectSingleCommand(t *testing.T) {
	need(t, "echo")
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	var out bytes.Buffer
	s, _ := newShell(&out)

	_, err := s.Execute(context.Background(), []string{"echo", "one", ">", path, ";", "echo", "two", ">>", path})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
	assert.Empty(t, out.String())
}

func TestExecuteBlankLine(t *testing.T) {
	var out bytes.Buffer
	s, _ := newShell(&out)
	rep, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.ExitCode)
	assert.Empty(t, rep.Steps)
}
