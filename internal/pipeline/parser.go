package pipeline

// SplitPoints returns the index of every pipe operator in tokens.
func SplitPoints(tokens []string) []int {
	points := make([]int, 0, Count(tokens, OpPipe))
	for i, t := range tokens {
		if t == OpPipe {
			points = append(points, i)
		}
	}
	return points
}

// Split cuts tokens into one segment per command. Tokens without a pipe
// operator are rejected with ErrNotPipeline; an operator at either end or two
// adjacent operators produce an *EmptyCommandError.
func Split(tokens []string) ([]Segment, error) {
	if Count(tokens, OpPipe) == 0 {
		return nil, ErrNotPipeline
	}
	points := SplitPoints(tokens)
	n := len(points) + 1

	segments := make([]Segment, 0, n)
	lo := 0
	for k := 0; k < n; k++ {
		hi := len(tokens)
		if k < len(points) {
			hi = points[k]
		}
		if hi <= lo {
			return nil, &EmptyCommandError{Segment: k, Segments: n}
		}
		segments = append(segments, Segment{Index: k, Tokens: Slice(tokens, lo, hi)})
		lo = hi + 1
	}
	return segments, nil
}
