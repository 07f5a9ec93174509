// Package token splits a command line into words and operators.
//
// Tokens carry no quoting information: a quoted '|' and a bare | both come
// out as the token "|", and every later stage treats them alike. Quote an
// operator character together with other text ('a|b') to keep it in a word.
package token

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote reports a line that ends inside a quoted string.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// operators, longest first so that ">>" wins over ">".
var operators = []string{"&&", "||", ">>", "|", "&", ";", "<", ">"}

// Split breaks line into tokens. Words are separated by whitespace; operators
// are emitted as their own tokens even without surrounding spaces. Single
// quotes preserve everything literally, double quotes honour \" and \\, and a
// backslash outside quotes escapes the next character (and is dropped at the
// end of the line). A # at the start of a word begins a comment.
func Split(line string) ([]string, error) {
	var (
		tokens []string
		buf    strings.Builder
		inWord bool
	)
	flush := func() {
		if inWord {
			tokens = append(tokens, buf.String())
			buf.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case c == '#' && !inWord:
			flush()
			return tokens, nil
		case c == '\\':
			// A trailing backslash escapes nothing and is dropped.
			if i+1 < len(line) {
				inWord = true
				i++
				buf.WriteByte(line[i])
			}
		case c == '\'':
			inWord = true
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, ErrUnterminatedQuote
			}
			buf.WriteString(line[i+1 : i+1+end])
			i += end + 1
		case c == '"':
			inWord = true
			closed := false
			for i++; i < len(line); i++ {
				if line[i] == '"' {
					closed = true
					break
				}
				if line[i] == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\') {
					i++
				}
				buf.WriteByte(line[i])
			}
			if !closed {
				return nil, ErrUnterminatedQuote
			}
		default:
			if op := operatorAt(line[i:]); op != "" {
				flush()
				tokens = append(tokens, op)
				i += len(op) - 1
				continue
			}
			inWord = true
			buf.WriteByte(c)
		}
	}
	flush()
	return tokens, nil
}

func operatorAt(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}
