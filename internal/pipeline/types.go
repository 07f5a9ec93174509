package pipeline

import "github.com/marcelocantos/swish/internal/fdset"

// OpPipe separates the commands of a pipeline (stdout → stdin).
const OpPipe = "|"

// None marks a stage side that is not connected to a pipe.
const None = -1

// Segment is one command of a pipeline: the tokens strictly between two pipe
// operators (or the start/end of the line). Never empty.
type Segment struct {
	Index  int
	Tokens []string
}

// Indices locates a stage's pipe ends in the descriptor set.
type Indices struct {
	Read  int // read end feeding stdin, or None for the first stage
	Write int // write end taking stdout, or None for the last stage
}

// StageIndices returns the descriptor indices for stage k of n. Stage k reads
// from the read end of pair k-1 and writes to the write end of pair k.
func StageIndices(k, n int) Indices {
	idx := Indices{Read: None, Write: None}
	if k > 0 {
		idx.Read = fdset.ReadEnd(k - 1)
	}
	if k < n-1 {
		idx.Write = fdset.WriteEnd(k)
	}
	return idx
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Index    int
	Argv     []string
	Pid      int   // 0 if no process was created
	ExitCode int   // process status, or the status assigned to a command that could not run
	Err      error // why the command could not run or be waited for, nil otherwise
}

// Result is the outcome of a pipeline whose stages were all launched.
type Result struct {
	Stages   []StageResult
	ExitCode int // status of the last stage
}
