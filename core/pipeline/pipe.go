package pipeline

import (
	"os"
	"sync"
)

// Endpoint is the supervisor's handle on one end of a Pipe. Binding it to a
// stage gives the child its own copy; the supervisor's copy stays open until
// Release. After Release the endpoint can't be bound again.
type Endpoint struct {
	name string

	mu   sync.Mutex
	file *os.File
}

func newEndpoint(name string, file *os.File) *Endpoint {
	return &Endpoint{name: name, file: file}
}

// Name is "read" or "write".
func (e *Endpoint) Name() string {
	return e.name
}

// bind returns the descriptor to hand to a child.
func (e *Endpoint) bind() (*os.File, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil, ErrEndpointReleased
	}
	return e.file, nil
}

// Release closes the supervisor's copy. Releasing twice is a no-op.
func (e *Endpoint) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	file := e.file
	e.file = nil
	if err := file.Close(); err != nil {
		return &CloseError{Endpoint: e.name, Err: err}
	}
	return nil
}

// Released reports whether the supervisor gave up the endpoint.
func (e *Endpoint) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.file == nil
}

// Pipe is the one anonymous pipe of a run, connecting stage 2's output to stage
// 3's input.
type Pipe struct {
	reader *Endpoint
	writer *Endpoint
}

// NewPipe asks the kernel for a pipe. Both descriptors are close-on-exec, so
// only the stage an endpoint is bound to inherits it.
func NewPipe() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &PipeError{Err: err}
	}

	return &Pipe{
		reader: newEndpoint("read", r),
		writer: newEndpoint("write", w),
	}, nil
}

// Reader is the end stage 3 reads from.
func (p *Pipe) Reader() *Endpoint {
	return p.reader
}

// Writer is the end stage 2 writes to.
func (p *Pipe) Writer() *Endpoint {
	return p.writer
}

// Open counts the endpoints the supervisor still holds.
func (p *Pipe) Open() int {
	open := 0
	for _, e := range []*Endpoint{p.reader, p.writer} {
		if !e.Released() {
			open++
		}
	}
	return open
}

// Close releases both endpoints. Both are attempted; the first error wins.
func (p *Pipe) Close() error {
	readErr := p.reader.Release()
	writeErr := p.writer.Release()

	if readErr != nil {
		return readErr
	}
	return writeErr
}
