package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPipeline reports tokens without a pipe operator. Single commands
	// are run by the caller.
	ErrNotPipeline = errors.New("not a pipeline")

	// ErrEmptyCommand reports a pipeline with a zero-token command.
	ErrEmptyCommand = errors.New("empty command")

	// ErrFork reports that a stage's process could not be created. Stages
	// after it are not launched.
	ErrFork = errors.New("cannot create process")

	// ErrDescriptorWire reports that a stage's pipe end could not be attached
	// to its standard stream. Only that stage fails.
	ErrDescriptorWire = errors.New("cannot wire descriptor")

	// ErrWait reports that waiting on a stage failed. The remaining stages
	// are still waited for.
	ErrWait = errors.New("wait failed")
)

// EmptyCommandError identifies the empty segment of a pipeline.
type EmptyCommandError struct {
	Segment  int // index of the empty segment
	Segments int // segments in the pipeline
}

func (e *EmptyCommandError) Error() string {
	var where string
	switch e.Segment {
	case 0:
		where = "before " + OpPipe
	case e.Segments - 1:
		where = "after " + OpPipe
	default:
		where = "between " + OpPipe + " and " + OpPipe
	}
	return fmt.Sprintf("segment %d: empty command %s", e.Segment, where)
}

// Is makes errors.Is(err, ErrEmptyCommand) true.
func (e *EmptyCommandError) Is(target error) bool {
	return target == ErrEmptyCommand
}
