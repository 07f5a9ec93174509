// Package command runs one external command: it builds the argument vector,
// applies < and > redirections, and starts the program with the standard
// streams it is given.
package command

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Exit statuses for commands that never produced one of their own.
const (
	StatusFailure       = 1
	StatusCannotExecute = 126
	StatusNotFound      = 127
	StatusSignalBase    = 128
)

// Failure reports that a command could not be run at all. Whoever was going
// to wait for it treats it as having exited with Status.
type Failure struct {
	Status int
	Err    error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure classifies an error from Prepare or Start. It returns nil when
// the error is not attributable to the command itself (for example when the
// process could not be forked at all).
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &Failure{Status: StatusNotFound, Err: err}
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.ENOEXEC), errors.Is(err, syscall.EISDIR):
		return &Failure{Status: StatusCannotExecute, Err: err}
	case errors.Is(err, syscall.EBADF):
		return &Failure{Status: StatusFailure, Err: err}
	}
	return nil
}

// ExitStatus converts the result of waiting on a process into a shell exit
// status. Death by signal maps to StatusSignalBase plus the signal number. An
// error that carries no exit status is returned with status -1.
func ExitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return StatusSignalBase + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Runner holds the process attributes shared by every command it prepares.
//
// Commands prepared by one Runner may run at once. When Stderr is not an
// *os.File, their writes to it are serialized, so Stderr need not be safe
// for concurrent use. A Runner must not be copied after first use.
type Runner struct {
	Env    []string  // nil inherits the current environment
	Dir    string    // empty uses the current directory
	Stderr io.Writer // nil means os.Stderr

	once   sync.Once
	stderr io.Writer
}

// stderrWriter returns the writer every prepared command shares for stderr.
func (r *Runner) stderrWriter() io.Writer {
	r.once.Do(func() {
		switch w := r.Stderr.(type) {
		case nil:
			r.stderr = os.Stderr
		case *os.File:
			r.stderr = w
		default:
			r.stderr = &lockedWriter{w: w}
		}
	})
	return r.stderr
}

// lockedWriter serializes writes from the copy goroutines os/exec starts for
// each command whose stderr is not a file.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Prepared is a command ready to start. The parent's copies of any redirect
// files stay open until Close.
type Prepared struct {
	Spec  Spec
	Cmd   *exec.Cmd
	files []*os.File
}

// Prepare parses tokens and builds the process. stdin and stdout are used for
// whichever stream the tokens do not redirect; a nil stdin reads from the null
// device. Errors are always *Failure.
func (r *Runner) Prepare(tokens []string, stdin io.Reader, stdout io.Writer) (*Prepared, error) {
	spec, err := Parse(tokens)
	if err != nil {
		return nil, &Failure{Status: StatusFailure, Err: err}
	}

	p := &Prepared{Spec: spec}
	if spec.In != "" {
		f, err := os.Open(spec.In)
		if err != nil {
			return nil, &Failure{Status: StatusFailure, Err: fmt.Errorf("%w: %w", ErrRedirect, err)}
		}
		p.files = append(p.files, f)
		stdin = f
	}
	if spec.Out != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if spec.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(spec.Out, flags, 0644)
		if err != nil {
			_ = p.Close()
			return nil, &Failure{Status: StatusFailure, Err: fmt.Errorf("%w: %w", ErrRedirect, err)}
		}
		p.files = append(p.files, f)
		stdout = f
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Env = r.Env
	cmd.Dir = r.Dir
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = r.stderrWriter()
	p.Cmd = cmd
	return p, nil
}

// Name returns the program name.
func (p *Prepared) Name() string { return p.Spec.Argv[0] }

// Start starts the process. The caller must still call Close.
func (p *Prepared) Start() error {
	return p.Cmd.Start()
}

// Pid returns the process id, or 0 if the process has not started.
func (p *Prepared) Pid() int {
	if p.Cmd.Process == nil {
		return 0
	}
	return p.Cmd.Process.Pid
}

// Wait waits for the started process and returns its exit status.
func (p *Prepared) Wait() (int, error) {
	return ExitStatus(p.Cmd.Wait())
}

// Close releases the parent's copies of redirect files. The started child
// holds its own duplicates.
func (p *Prepared) Close() error {
	var errs []error
	for _, f := range p.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.files = nil
	return errors.Join(errs...)
}

// Run starts the command, waits for it, and returns its status. A command
// that cannot be run yields the Failure status and the error.
func (r *Runner) Run(tokens []string, stdin io.Reader, stdout io.Writer) (int, error) {
	p, err := r.Prepare(tokens, stdin, stdout)
	if err != nil {
		return AsFailure(err).Status, err
	}
	err = p.Start()
	_ = p.Close()
	if err != nil {
		if f := AsFailure(err); f != nil {
			return f.Status, f
		}
		return -1, err
	}
	return p.Wait()
}
