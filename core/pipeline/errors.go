package pipeline

import (
	"errors"
	"fmt"
)

const (
	// ExitOK is returned when the run completed, including when stage 1 failed
	// and the later stages were skipped.
	ExitOK = 0
	// ExitFailure is returned for setup errors in the supervisor.
	ExitFailure = 1
)

// ErrEndpointReleased is returned when a pipe endpoint is used after the
// supervisor gave it up.
var ErrEndpointReleased = errors.New("pipe endpoint already released")

// UsageError reports an incomplete command line.
type UsageError struct {
	Got int
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("not enough arguments: got %d, want %d (STAGE1 STAGE2 STAGE3 OUTPUT)", e.Got, RequiredArgs)
}

// ForkError reports that a stage's process couldn't be created.
type ForkError struct {
	Stage Stage
	Err   error
}

func (e *ForkError) Error() string {
	return fmt.Sprintf("fork failed for stage %d (%s): %v", e.Stage.Index, e.Stage.Name, e.Err)
}

func (e *ForkError) Unwrap() error { return e.Err }

// PipeError reports that the pipe between stage 2 and 3 couldn't be created.
type PipeError struct {
	Err error
}

func (e *PipeError) Error() string {
	return fmt.Sprintf("pipe failed: %v", e.Err)
}

func (e *PipeError) Unwrap() error { return e.Err }

// CloseError reports that the supervisor couldn't release a pipe endpoint.
type CloseError struct {
	Endpoint string
	Err      error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("failed to close pipe %s end: %v", e.Endpoint, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }

// ExitCode maps the result of a run to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitFailure
}
