package command

import (
	"errors"
	"fmt"
)

// Redirection operators recognised inside a single command.
const (
	OpRedirectIn     = "<"
	OpRedirectOut    = ">"
	OpRedirectAppend = ">>"
)

var (
	// ErrRedirect reports a malformed redirection.
	ErrRedirect = errors.New("bad redirection")

	// ErrEmptyCommand reports a command with no program name.
	ErrEmptyCommand = errors.New("empty command")
)

// Spec is one command's argument vector and redirections.
type Spec struct {
	Argv   []string
	In     string // stdin redirect (<), empty if none
	Out    string // stdout redirect (> or >>), empty if none
	Append bool   // true for >>
}

// Parse separates argv from redirections. Redirections may appear anywhere in
// the token list; each stream may be redirected at most once.
func Parse(tokens []string) (Spec, error) {
	var spec Spec
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case OpRedirectIn, OpRedirectOut, OpRedirectAppend:
			if i+1 >= len(tokens) || isRedirect(tokens[i+1]) {
				return Spec{}, fmt.Errorf("%w: %s requires a file path", ErrRedirect, tok)
			}
			i++
			if tok == OpRedirectIn {
				if spec.In != "" {
					return Spec{}, fmt.Errorf("%w: multiple %s redirects", ErrRedirect, OpRedirectIn)
				}
				spec.In = tokens[i]
				continue
			}
			if spec.Out != "" {
				return Spec{}, fmt.Errorf("%w: multiple output redirects", ErrRedirect)
			}
			spec.Out = tokens[i]
			spec.Append = tok == OpRedirectAppend
		default:
			spec.Argv = append(spec.Argv, tok)
		}
	}
	if len(spec.Argv) == 0 {
		return Spec{}, ErrEmptyCommand
	}
	return spec, nil
}

func isRedirect(tok string) bool {
	return tok == OpRedirectIn || tok == OpRedirectOut || tok == OpRedirectAppend
}
