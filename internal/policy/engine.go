// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"fmt"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marcelocantos/swish/internal/rules"
)

// CheckFunc is the name of the function a policy script must define.
const CheckFunc = "check"

// Engine evaluates steps against argument rules and an optional compiled
// Starlark policy script. Rules run first.
//
// The script defines check(stages), where stages is a list of argument
// lists, one per pipeline stage. Returning True or None allows the step,
// False denies it, and a string denies it with that string as the reason.
type Engine struct {
	name  string
	check starlark.Callable // nil when there is no script
	rules *rules.RuleSet
}

// New returns an Engine that applies rs only.
func New(rs *rules.RuleSet) *Engine {
	return &Engine{rules: rs}
}

// WithRules sets the rules applied before the script and returns e.
func (e *Engine) WithRules(rs *rules.RuleSet) *Engine {
	e.rules = rs
	return e
}

// Compile executes src once and keeps its check function. The script's
// globals are frozen afterwards, so calls cannot mutate shared state.
func Compile(name string, src []byte) (*Engine, error) {
	thread := &starlark.Thread{Name: "policy:" + name}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", name, err)
	}
	globals.Freeze()

	v, ok := globals[CheckFunc]
	if !ok {
		return nil, fmt.Errorf("policy %s: no %s function defined", name, CheckFunc)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("policy %s: %s is a %s, not a function", name, CheckFunc, v.Type())
	}
	return &Engine{name: name, check: fn}, nil
}

// Load reads and compiles the policy script at path.
func Load(path string) (*Engine, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	return Compile(path, src)
}

// Name returns the script name given to Compile.
func (e *Engine) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Check applies the rules to every stage, then calls the script's check
// function with stages. A nil Engine allows everything. Cancelling ctx
// interrupts a running script.
func (e *Engine) Check(ctx context.Context, stages [][]string) (Result, error) {
	if e == nil {
		return Result{Decision: Allow}, nil
	}
	for _, argv := range stages {
		if err := e.rules.Check(argv); err != nil {
			return Result{Decision: Deny, Reason: err.Error()}, nil
		}
	}
	if e.check == nil {
		return Result{Decision: Allow}, nil
	}

	thread := &starlark.Thread{Name: "policy:" + e.name}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	list := make([]starlark.Value, len(stages))
	for i, argv := range stages {
		words := make([]starlark.Value, len(argv))
		for j, w := range argv {
			words[j] = starlark.String(w)
		}
		list[i] = starlark.NewList(words)
	}

	v, err := starlark.Call(thread, e.check, starlark.Tuple{starlark.NewList(list)}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("policy %s: %w", e.name, err)
	}

	switch v := v.(type) {
	case starlark.NoneType:
		return Result{Decision: Allow}, nil
	case starlark.Bool:
		if v {
			return Result{Decision: Allow}, nil
		}
		return Result{Decision: Deny}, nil
	case starlark.String:
		return Result{Decision: Deny, Reason: string(v)}, nil
	default:
		return Result{}, fmt.Errorf("policy %s: %s returned %s, want bool, None or string", e.name, CheckFunc, v.Type())
	}
}

// Enforce is Check reduced to an error: nil when allowed, a *DeniedError
// when denied. If ctx carries an *EvalInfo it is updated with the outcome.
func (e *Engine) Enforce(ctx context.Context, stages [][]string) error {
	info := EvalFromContext(ctx)
	res, err := e.Check(ctx, stages)
	if err != nil {
		if info != nil {
			info.Decision, info.Reason = "error", err.Error()
		}
		return err
	}
	if info != nil {
		info.Decision, info.Reason = res.Decision.String(), res.Reason
	}
	if res.Decision == Deny {
		return &DeniedError{Reason: res.Reason}
	}
	return nil
}
