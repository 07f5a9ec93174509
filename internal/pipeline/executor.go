package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/marcelocantos/swish/internal/command"
	"github.com/marcelocantos/swish/internal/fdset"
	"github.com/marcelocantos/swish/internal/logging"
)

// Orchestrator runs pipelines of external commands connected by OS pipes.
// The zero value reads the first stage's input from and writes the last
// stage's output to the null device.
type Orchestrator struct {
	Runner *command.Runner // nil uses a zero Runner
	Stdin  io.Reader       // first stage's stdin
	Stdout io.Writer       // last stage's stdout
	Log    *zap.Logger     // used when the context carries no logger

	// Pipe creates each pipe. nil uses fdset.SysPipe.
	Pipe fdset.PipeFunc

	// Start starts one prepared stage. nil uses (*command.Prepared).Start.
	Start func(*command.Prepared) error
}

// child is one launched (or failed-to-launch) stage.
type child struct {
	seg     Segment
	idx     Indices
	proc    *command.Prepared
	started bool
	status  int
	err     error
}

// Run executes the pipeline described by tokens. Every stage is launched,
// left to right, before any stage is waited for, so no writer can block on a
// full pipe whose reader has not started yet.
//
// A nil Result means nothing ran to completion: the tokens were malformed or
// setup failed (ErrPipeCreation, ErrFork). Otherwise the Result is complete
// and any error wraps ErrWait.
func (o *Orchestrator) Run(ctx context.Context, tokens []string) (*Result, error) {
	log := logging.FromContext(ctx, o.Log)

	segments, err := Split(tokens)
	if err != nil {
		return nil, err
	}

	pipe := o.Pipe
	if pipe == nil {
		pipe = fdset.SysPipe
	}
	set, err := fdset.AllocateWith(len(segments), pipe)
	if err != nil {
		log.Error("pipe allocation failed", zap.Int("stages", len(segments)), zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := set.CloseAll(); err != nil {
			log.Warn("descriptor cleanup failed", zap.Error(err))
		}
	}()

	log.Debug("launching pipeline", zap.Int("stages", len(segments)), zap.Int("descriptors", set.Len()))
	children, err := o.launch(ctx, log, segments, set)
	if err != nil {
		log.Error("pipeline launch aborted", zap.Error(err))
		if cerr := set.CloseAll(); cerr != nil {
			log.Warn("descriptor cleanup failed", zap.Error(cerr))
		}
		// Stages already running are left to finish on their own; with
		// every parent-side descriptor closed they see EOF or EPIPE.
		go reap(children, log)
		return nil, err
	}
	return o.wait(children, log)
}

// launch starts every stage in order. It stops at the first error that is not
// contained to a single stage and returns the children created so far.
func (o *Orchestrator) launch(ctx context.Context, log *zap.Logger, segments []Segment, set *fdset.Set) ([]*child, error) {
	n := len(segments)
	children := make([]*child, 0, n)
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return children, fmt.Errorf("stage %d: launch cancelled: %w", seg.Index, err)
		}
		c := &child{seg: seg, idx: StageIndices(seg.Index, n)}
		children = append(children, c)
		if err := o.startStage(log, c, set); err != nil {
			return children, err
		}
	}
	return children, nil
}

// startStage wires, prepares and starts one stage, then releases the
// parent's copies of the stage's pipe ends whatever the outcome.
func (o *Orchestrator) startStage(log *zap.Logger, c *child, set *fdset.Set) error {
	defer o.release(log, c, set)

	stdin, stdout, err := o.wire(c, set)
	if err != nil {
		c.fail(command.StatusFailure, err)
		return nil
	}

	p, err := o.runner().Prepare(c.seg.Tokens, stdin, stdout)
	if err != nil {
		c.fail(command.AsFailure(err).Status, fmt.Errorf("stage %d: %w", c.seg.Index, err))
		return nil
	}
	c.proc = p

	start := o.Start
	if start == nil {
		start = (*command.Prepared).Start
	}
	err = start(p)
	if cerr := p.Close(); cerr != nil {
		log.Warn("closing redirect files failed", zap.Int("stage", c.seg.Index), zap.Error(cerr))
	}
	if err != nil {
		if f := command.AsFailure(err); f != nil {
			c.fail(f.Status, fmt.Errorf("stage %d: %s: %w", c.seg.Index, p.Name(), err))
			return nil
		}
		return fmt.Errorf("stage %d (%s): %w: %w", c.seg.Index, p.Name(), ErrFork, err)
	}

	c.started = true
	log.Debug("stage started",
		zap.Int("stage", c.seg.Index),
		zap.Int("pid", p.Pid()),
		zap.Strings("argv", p.Spec.Argv),
		zap.Int("read", c.idx.Read),
		zap.Int("write", c.idx.Write))
	return nil
}

// wire picks the stage's standard input and output.
func (o *Orchestrator) wire(c *child, set *fdset.Set) (io.Reader, io.Writer, error) {
	stdin, stdout := o.Stdin, o.Stdout
	if c.idx.Read != None {
		f := set.File(c.idx.Read)
		if f == nil {
			return nil, nil, fmt.Errorf("stage %d: %w: read end %d is not open", c.seg.Index, ErrDescriptorWire, c.idx.Read)
		}
		stdin = f
	}
	if c.idx.Write != None {
		f := set.File(c.idx.Write)
		if f == nil {
			return nil, nil, fmt.Errorf("stage %d: %w: write end %d is not open", c.seg.Index, ErrDescriptorWire, c.idx.Write)
		}
		stdout = f
	}
	return stdin, stdout, nil
}

// release closes the two descriptors handed to this stage. The child, if
// any, holds its own duplicates.
func (o *Orchestrator) release(log *zap.Logger, c *child, set *fdset.Set) {
	for _, i := range [...]int{c.idx.Read, c.idx.Write} {
		if i == None {
			continue
		}
		if err := set.Release(i); err != nil {
			log.Warn("releasing descriptor failed", zap.Int("stage", c.seg.Index), zap.Int("index", i), zap.Error(err))
		}
	}
}

// wait waits for every started stage in launch order.
func (o *Orchestrator) wait(children []*child, log *zap.Logger) (*Result, error) {
	res := &Result{Stages: make([]StageResult, 0, len(children))}
	var errs []error
	for _, c := range children {
		if c.started {
			status, err := c.proc.Wait()
			c.status = status
			if err != nil {
				c.status = command.StatusFailure
				c.err = fmt.Errorf("stage %d (%s): %w: %w", c.seg.Index, c.proc.Name(), ErrWait, err)
				log.Warn("wait failed", zap.Int("stage", c.seg.Index), zap.Error(err))
				errs = append(errs, c.err)
			} else {
				log.Debug("stage exited", zap.Int("stage", c.seg.Index), zap.Int("status", c.status))
			}
		}
		res.Stages = append(res.Stages, c.result())
	}
	res.ExitCode = res.Stages[len(res.Stages)-1].ExitCode
	return res, errors.Join(errs...)
}

// reap collects children orphaned by an aborted launch.
func reap(children []*child, log *zap.Logger) {
	for _, c := range children {
		if !c.started {
			continue
		}
		status, err := c.proc.Wait()
		log.Debug("orphaned stage exited", zap.Int("stage", c.seg.Index), zap.Int("status", status), zap.Error(err))
	}
}

func (c *child) fail(status int, err error) {
	c.status = status
	c.err = err
}

func (c *child) result() StageResult {
	r := StageResult{Index: c.seg.Index, Argv: c.seg.Tokens, ExitCode: c.status, Err: c.err}
	if c.proc != nil {
		r.Argv = c.proc.Spec.Argv
		r.Pid = c.proc.Pid()
	}
	return r
}

func (o *Orchestrator) runner() *command.Runner {
	if o.Runner == nil {
		return &command.Runner{}
	}
	return o.Runner
}
