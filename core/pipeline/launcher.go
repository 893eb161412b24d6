package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/josephlewis42/pipegate/core/stagexec"
)

// Launcher starts stages as child processes without waiting for them.
//
// Every child is started through a trampoline, an argv prefix that re-executes
// this binary in stage mode (see package stagexec). Stream bindings happen in
// the process-creation call, file redirections and the PATH lookup happen in
// the child just before exec.
type Launcher struct {
	trampoline []string

	// Stdin and Stdout are the streams inherited by stages that don't redirect
	// them.
	Stdin  io.Reader
	Stdout io.Writer
	// Stderr is shared by every child. Nil gives children the null device.
	Stderr io.Writer

	Logger *log.Logger
}

// NewLauncher creates a Launcher whose children run trampoline followed by the
// stage request, e.g. {"/usr/bin/pipegate", "__stage"}.
func NewLauncher(trampoline []string, stderr io.Writer, logger *log.Logger) (*Launcher, error) {
	if len(trampoline) == 0 || trampoline[0] == "" {
		return nil, errors.New("launcher needs a trampoline command")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Launcher{
		trampoline: append([]string(nil), trampoline...),
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     stderr,
		Logger:     logger,
	}, nil
}

// Spawn starts stage with the given redirections and returns immediately.
// Roles without a Redirection are inherited.
func (l *Launcher) Spawn(stage Stage, redirs ...Redirection) (*Handle, error) {
	if err := validateRedirections(redirs); err != nil {
		return nil, fmt.Errorf("stage %d (%s): %w", stage.Index, stage.Name, err)
	}

	req := stagexec.Request{Program: stage.Name}
	cmd := exec.Command(l.trampoline[0], l.trampoline[1:]...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	for _, r := range redirs {
		switch r.Kind {
		case FromEndpoint:
			file, err := r.Endpoint.bind()
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s) %s: %w", stage.Index, stage.Name, r.Role, err)
			}
			if r.Role == Stdin {
				cmd.Stdin = file
			} else {
				cmd.Stdout = file
			}
		case ToFile:
			if r.Role == Stdin {
				req.StdinFile = r.Path
			} else {
				req.StdoutFile = r.Path
				req.Mode = r.Mode
			}
		}
	}
	cmd.Args = append(cmd.Args, req.Args()...)

	if err := cmd.Start(); err != nil {
		return nil, &ForkError{Stage: stage, Err: err}
	}

	l.Logger.Printf("stage %d (%s) started as pid %d %v", stage.Index, stage.Name, cmd.Process.Pid, redirs)

	return &Handle{
		Stage: stage,
		Pid:   cmd.Process.Pid,
		cmd:   cmd,
	}, nil
}

// Handle is a running or finished child.
type Handle struct {
	Stage Stage
	Pid   int

	cmd *exec.Cmd

	mu      sync.Mutex
	outcome *ExitOutcome
}

// Wait blocks until the child terminates. A nonzero exit or a signal is an
// outcome, not an error; errors mean the child couldn't be waited on.
func (h *Handle) Wait() (ExitOutcome, error) {
	err := h.cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return ExitOutcome{}, fmt.Errorf("waiting for stage %d (%s): %w", h.Stage.Index, h.Stage.Name, err)
	}

	outcome := outcomeFromState(h.cmd.ProcessState)

	h.mu.Lock()
	h.outcome = &outcome
	h.mu.Unlock()

	return outcome, nil
}

// Outcome returns the observed outcome, if Wait has returned.
func (h *Handle) Outcome() (ExitOutcome, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.outcome == nil {
		return ExitOutcome{}, false
	}
	return *h.outcome, true
}
