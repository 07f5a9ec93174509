// Package fdset owns the pipe descriptors that connect the stages of a
// pipeline. A Set is allocated once per pipeline and every descriptor in it is
// released exactly once, whichever path the pipeline takes.
package fdset

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var (
	// ErrPipeCreation reports that an OS pipe could not be created. When it
	// is returned no descriptor from the failed allocation remains open.
	ErrPipeCreation = errors.New("pipe creation failed")

	// ErrClose reports that one or more descriptors failed to close. Cleanup
	// continues past individual failures.
	ErrClose = errors.New("one or more closes failed")
)

// PipeFunc creates one pipe, storing the read end in fds[0] and the write end
// in fds[1].
type PipeFunc func(fds []int) error

// SysPipe creates a close-on-exec pipe. Children started through os/exec
// therefore inherit only the descriptors explicitly duplicated onto their
// standard streams.
func SysPipe(fds []int) error {
	return unix.Pipe2(fds, unix.O_CLOEXEC)
}

// ReadEnd returns the index of the read end of pipe pair p.
func ReadEnd(p int) int { return 2 * p }

// WriteEnd returns the index of the write end of pipe pair p.
func WriteEnd(p int) int { return 2*p + 1 }

// Descriptor is one end of a pipe.
type Descriptor struct {
	file     *os.File
	released bool
}

// File returns the underlying file, or nil once the descriptor is released.
func (d *Descriptor) File() *os.File {
	if d.released {
		return nil
	}
	return d.file
}

// Released reports whether Release has been called.
func (d *Descriptor) Released() bool { return d.released }

// Release closes the descriptor. Later calls do nothing and return nil.
func (d *Descriptor) Release() error {
	if d.released {
		return nil
	}
	d.released = true
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", d.file.Name(), err)
	}
	return nil
}

// Set is the flat descriptor array for a pipeline: segmentCount-1 adjacent
// (read_end, write_end) pairs. Pair k connects stage k to stage k+1.
//
// A Set is not safe for concurrent use.
type Set struct {
	fds []*Descriptor
}

// Allocate creates the segmentCount-1 pipes needed by a pipeline of
// segmentCount commands.
func Allocate(segmentCount int) (*Set, error) {
	return AllocateWith(segmentCount, SysPipe)
}

// AllocateWith is Allocate with a caller-supplied pipe primitive. If any pipe
// fails, every descriptor created so far is closed before returning.
func AllocateWith(segmentCount int, pipe PipeFunc) (*Set, error) {
	if segmentCount < 2 {
		return nil, fmt.Errorf("allocate pipes: %d segments, need at least 2", segmentCount)
	}
	n := segmentCount - 1
	raw := make([]int, 2*n)
	for i := 0; i < n; i++ {
		if err := pipe(raw[2*i : 2*i+2]); err != nil {
			if cerr := closeFDs(raw[:2*i]); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return nil, fmt.Errorf("%w: pipe %d of %d: %w", ErrPipeCreation, i+1, n, err)
		}
	}

	s := &Set{fds: make([]*Descriptor, len(raw))}
	for i, fd := range raw {
		end := "r"
		if i%2 == 1 {
			end = "w"
		}
		s.fds[i] = &Descriptor{file: os.NewFile(uintptr(fd), fmt.Sprintf("|%d%s", i/2, end))}
	}
	return s, nil
}

// Len returns the number of descriptors, released or not.
func (s *Set) Len() int { return len(s.fds) }

// At returns descriptor i, or nil if i is out of range.
func (s *Set) At(i int) *Descriptor {
	if i < 0 || i >= len(s.fds) {
		return nil
	}
	return s.fds[i]
}

// File returns the open file at index i, or nil if i is out of range or the
// descriptor has been released.
func (s *Set) File(i int) *os.File {
	d := s.At(i)
	if d == nil {
		return nil
	}
	return d.File()
}

// Release closes descriptor i if it is still open.
func (s *Set) Release(i int) error {
	d := s.At(i)
	if d == nil {
		return fmt.Errorf("release descriptor %d: index out of range [0,%d)", i, len(s.fds))
	}
	return d.Release()
}

// Open returns how many descriptors have not been released.
func (s *Set) Open() int {
	n := 0
	for _, d := range s.fds {
		if !d.released {
			n++
		}
	}
	return n
}

// CloseAll releases every descriptor still open. It keeps going after a
// failure and returns a single error wrapping ErrClose that joins every
// individual failure.
func (s *Set) CloseAll() error {
	var errs []error
	for _, d := range s.fds {
		if err := d.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrClose, errors.Join(errs...))
	}
	return nil
}

// closeFDs closes raw descriptors that were never wrapped in a Set.
func closeFDs(fds []int) error {
	var errs []error
	for _, fd := range fds {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, fmt.Errorf("close fd %d: %w", fd, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrClose, errors.Join(errs...))
	}
	return nil
}
