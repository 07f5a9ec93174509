package pipeline

// Count returns how many tokens equal tok.
func Count(tokens []string, tok string) int {
	n := 0
	for _, t := range tokens {
		if t == tok {
			n++
		}
	}
	return n
}

// Find returns the index of the first token equal to tok, or -1.
func Find(tokens []string, tok string) int {
	for i, t := range tokens {
		if t == tok {
			return i
		}
	}
	return -1
}

// Slice returns a copy of tokens[lo:hi].
func Slice(tokens []string, lo, hi int) []string {
	out := make([]string, hi-lo)
	copy(out, tokens[lo:hi])
	return out
}
