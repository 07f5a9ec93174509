package shell

import (
	"errors"
	"fmt"

	"github.com/marcelocantos/swish/internal/pipeline"
)

// Operator joins two steps of a line.
type Operator string

// Compound operators.
const (
	OpAndThen    Operator = "&&" // run next only if this step succeeded
	OpOrElse     Operator = "||" // run next only if this step failed
	OpSequential Operator = ";"  // run next unconditionally
	OpBackground Operator = "&"
)

var (
	// ErrBackground reports a line that asks for background execution.
	ErrBackground = errors.New("background execution with & is not supported")

	// ErrEmptyStep reports a missing command around a compound operator.
	ErrEmptyStep = errors.New("empty command")
)

// Step is one pipeline (or single command) of a line. Op is the operator
// that follows it, empty for the last step.
type Step struct {
	Tokens []string
	Op     Operator
}

// Piped reports whether the step contains a pipe.
func (s Step) Piped() bool { return pipeline.Count(s.Tokens, pipeline.OpPipe) > 0 }

// ParseLine splits tokens on compound operators. A trailing ; is allowed;
// a blank line yields no steps. Every piped step is checked for empty
// commands here, so a malformed line runs nothing.
func ParseLine(tokens []string) ([]Step, error) {
	var (
		steps   []Step
		current []string
	)
	for _, tok := range tokens {
		op := toOperator(tok)
		if op == "" {
			current = append(current, tok)
			continue
		}
		if op == OpBackground {
			return nil, ErrBackground
		}
		if len(current) == 0 {
			return nil, fmt.Errorf("%w before %s", ErrEmptyStep, op)
		}
		steps = append(steps, Step{Tokens: current, Op: op})
		current = nil
	}

	if len(current) > 0 {
		steps = append(steps, Step{Tokens: current})
	} else if n := len(steps); n > 0 {
		if steps[n-1].Op != OpSequential {
			return nil, fmt.Errorf("%w after %s", ErrEmptyStep, steps[n-1].Op)
		}
		steps[n-1].Op = ""
	}

	for i, s := range steps {
		if !s.Piped() {
			continue
		}
		if _, err := pipeline.Split(s.Tokens); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return steps, nil
}

func toOperator(tok string) Operator {
	switch Operator(tok) {
	case OpAndThen, OpOrElse, OpSequential, OpBackground:
		return Operator(tok)
	default:
		return ""
	}
}
