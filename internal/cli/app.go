// Package cli implements the swish front ends: the interactive prompt,
// script and one-shot modes, audit subcommands and the MCP tool server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marcelocantos/swish/internal/audit"
	"github.com/marcelocantos/swish/internal/command"
	"github.com/marcelocantos/swish/internal/logging"
	"github.com/marcelocantos/swish/internal/pipeline"
	"github.com/marcelocantos/swish/internal/policy"
	"github.com/marcelocantos/swish/internal/shell"
	"github.com/marcelocantos/swish/internal/token"
)

// App runs lines on behalf of one front end.
type App struct {
	Policy *policy.Engine // nil allows everything
	Audit  *audit.Logger  // nil disables the audit log
	Log    *zap.Logger

	Stdin  io.Reader // stdin of the first command; nil reads the null device
	Stdout io.Writer
	Stderr io.Writer
}

// RunLine tokenizes and executes line, returning its exit status.
func (a *App) RunLine(ctx context.Context, line string) int {
	tokens, err := token.Split(line)
	if err != nil {
		fmt.Fprintf(a.Stderr, "swish: %v\n", err)
		return shell.StatusSetup
	}
	if len(tokens) == 0 {
		return 0
	}
	return a.execute(ctx, a.shell(a.Stdin, a.Stdout, a.Stderr), a.Stderr, line, tokens)
}

// RunTokens executes an already tokenized line: swish --pipe <tokens...>
func (a *App) RunTokens(ctx context.Context, tokens []string) int {
	if len(tokens) == 0 {
		fmt.Fprintln(a.Stderr, "swish --pipe: empty command")
		return shell.StatusSetup
	}
	return a.execute(ctx, a.shell(a.Stdin, a.Stdout, a.Stderr), a.Stderr, strings.Join(tokens, " "), tokens)
}

func (a *App) shell(stdin io.Reader, stdout, stderr io.Writer) *shell.Shell {
	return &shell.Shell{
		Orchestrator: &pipeline.Orchestrator{
			Runner: &command.Runner{Stderr: stderr},
			Stdin:  stdin,
			Stdout: stdout,
			Log:    a.Log,
		},
		Policy: a.Policy,
		Log:    a.Log,
	}
}

// execute runs tokens through sh, reports errors on stderr and records the
// line in the audit log.
func (a *App) execute(ctx context.Context, sh *shell.Shell, stderr io.Writer, line string, tokens []string) int {
	id := uuid.NewString()
	log := a.logger().With(zap.String("run", id))
	ctx = logging.NewContext(ctx, log)
	info := &policy.EvalInfo{}
	ctx = policy.NewEvalContext(ctx, info)

	start := time.Now()
	rep, err := sh.Execute(ctx, tokens)
	duration := time.Since(start)

	rec := audit.Record{ID: id, Line: line, Duration: duration}
	var status int
	if err != nil {
		printError(stderr, err)
		status = shell.StatusSetup
		rec.Err = err
	} else {
		errs := rep.Errors()
		for _, e := range errs {
			printError(stderr, e)
		}
		status = rep.ExitCode
		rec.Err = errors.Join(errs...)
		rec.Stages, rec.Statuses = ran(rep)
	}
	rec.ExitCode = status
	if a.Policy != nil {
		rec.Policy = info.Decision
	}

	log.Debug("line finished", zap.Int("status", status), zap.Duration("duration", duration))
	a.logAudit(log, rec)
	return status
}

// printError prints err as one "swish:" line per joined error.
func printError(w io.Writer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			printError(w, e)
		}
		return
	}
	fmt.Fprintf(w, "swish: %v\n", err)
}

// ran lists the commands of every step that ran, with their statuses.
func ran(rep *shell.Report) ([][]string, []int) {
	var (
		stages   [][]string
		statuses []int
	)
	for _, s := range rep.Steps {
		switch {
		case s.Skipped:
		case s.Pipeline != nil:
			for _, st := range s.Pipeline.Stages {
				stages = append(stages, st.Argv)
				statuses = append(statuses, st.ExitCode)
			}
		default:
			argv := s.Tokens
			if spec, err := command.Parse(s.Tokens); err == nil {
				argv = spec.Argv
			}
			stages = append(stages, argv)
			statuses = append(statuses, s.ExitCode)
		}
	}
	return stages, statuses
}

func (a *App) logAudit(log *zap.Logger, rec audit.Record) {
	if a.Audit == nil {
		return
	}
	rec.Cwd, _ = os.Getwd()
	// The line already ran; a failed audit write is only reported.
	if _, err := a.Audit.Log(rec); err != nil {
		log.Warn("audit write failed", zap.String("path", a.Audit.Path()), zap.Error(err))
	}
}

func (a *App) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
