// Package shell executes command lines: steps joined by &&, || and ;, each
// step a single command or a pipeline.
package shell

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/marcelocantos/swish/internal/command"
	"github.com/marcelocantos/swish/internal/logging"
	"github.com/marcelocantos/swish/internal/pipeline"
	"github.com/marcelocantos/swish/internal/policy"
)

// StatusSetup is the status of a step that could not be set up at all.
const StatusSetup = 2

// StepResult is the outcome of one step.
type StepResult struct {
	Tokens   []string
	Skipped  bool // not run because of a preceding && or ||
	ExitCode int
	Pipeline *pipeline.Result // nil unless the step was a pipeline that ran
	Err      error
}

// Report is the outcome of a line.
type Report struct {
	Steps    []StepResult
	ExitCode int // status of the last step that ran
}

// Errors collects the errors of every step that ran.
func (r *Report) Errors() []error {
	var errs []error
	for _, s := range r.Steps {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
		if s.Pipeline == nil {
			continue
		}
		for _, st := range s.Pipeline.Stages {
			if st.Err != nil && !errors.Is(s.Err, st.Err) {
				errs = append(errs, st.Err)
			}
		}
	}
	return errs
}

// Shell runs lines through an orchestrator, after checking each step
// against an optional policy.
type Shell struct {
	Orchestrator *pipeline.Orchestrator // required
	Policy       *policy.Engine         // nil allows everything
	Log          *zap.Logger
}

// Execute parses and runs tokens. The error is non-nil only when the line
// could not be parsed; failures of individual steps are in the Report.
func (s *Shell) Execute(ctx context.Context, tokens []string) (*Report, error) {
	steps, err := ParseLine(tokens)
	if err != nil {
		return nil, err
	}

	rep := &Report{Steps: make([]StepResult, 0, len(steps))}
	for i, step := range steps {
		if i > 0 && skip(steps[i-1].Op, rep.ExitCode) {
			rep.Steps = append(rep.Steps, StepResult{Tokens: step.Tokens, Skipped: true})
			continue
		}
		r := s.runStep(ctx, step)
		rep.Steps = append(rep.Steps, r)
		rep.ExitCode = r.ExitCode
	}
	return rep, nil
}

func skip(prev Operator, status int) bool {
	switch prev {
	case OpAndThen:
		return status != 0
	case OpOrElse:
		return status == 0
	default:
		return false
	}
}

func (s *Shell) runStep(ctx context.Context, step Step) StepResult {
	log := logging.FromContext(ctx, s.Log)
	res := StepResult{Tokens: step.Tokens}

	if err := s.Policy.Enforce(ctx, stages(step.Tokens)); err != nil {
		res.Err = err
		res.ExitCode = StatusSetup
		if errors.Is(err, policy.ErrDenied) {
			res.ExitCode = command.StatusFailure
		}
		log.Info("step rejected by policy", zap.Strings("tokens", step.Tokens), zap.Error(err))
		return res
	}

	o := s.Orchestrator
	if !step.Piped() {
		r := o.Runner
		if r == nil {
			r = &command.Runner{}
		}
		status, err := r.Run(step.Tokens, o.Stdin, o.Stdout)
		if status < 0 {
			status = StatusSetup
		}
		res.ExitCode, res.Err = status, err
		return res
	}

	p, err := o.Run(ctx, step.Tokens)
	res.Pipeline, res.Err = p, err
	if p == nil {
		res.ExitCode = StatusSetup
		return res
	}
	res.ExitCode = p.ExitCode
	return res
}

// stages returns the argument vector of each command in tokens, as the
// policy sees them. A command whose redirections do not parse is passed
// as written; running it will fail anyway.
func stages(tokens []string) [][]string {
	var out [][]string
	lo := 0
	for _, hi := range append(pipeline.SplitPoints(tokens), len(tokens)) {
		seg := tokens[lo:hi]
		if spec, err := command.Parse(seg); err == nil {
			out = append(out, spec.Argv)
		} else {
			out = append(out, seg)
		}
		lo = hi + 1
	}
	return out
}
