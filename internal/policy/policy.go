// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"errors"
	"fmt"
)

// Decision represents the outcome of policy evaluation.
type Decision int

const (
	Allow Decision = iota // command may run
	Deny                  // command is blocked
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Result is a structured policy decision.
type Result struct {
	Decision Decision
	Reason   string // human-readable explanation, empty on a plain allow
}

// ErrDenied is matched by every *DeniedError.
var ErrDenied = errors.New("denied by policy")

// DeniedError reports a step the policy script refused.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	if e.Reason == "" {
		return ErrDenied.Error()
	}
	return fmt.Sprintf("%s: %s", ErrDenied, e.Reason)
}

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }

// EvalInfo carries the last policy decision through context for audit
// logging.
type EvalInfo struct {
	Decision string // "allow", "deny", or "error"
	Reason   string
}

type evalInfoKey struct{}

// NewEvalContext returns a context with policy evaluation info attached.
// Enforce fills info in as it evaluates.
func NewEvalContext(ctx context.Context, info *EvalInfo) context.Context {
	return context.WithValue(ctx, evalInfoKey{}, info)
}

// EvalFromContext retrieves policy evaluation info from a context.
// Returns nil if not set.
func EvalFromContext(ctx context.Context) *EvalInfo {
	info, _ := ctx.Value(evalInfoKey{}).(*EvalInfo)
	return info
}
