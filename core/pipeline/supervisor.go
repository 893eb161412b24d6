package pipeline

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/josephlewis42/pipegate/core/logger"
	"golang.org/x/sync/errgroup"
)

// State is a step of the supervisor's state machine.
type State int

const (
	StateStart State = iota
	StateRun1
	StateAwait1
	StateGateFail
	StateGatePass
	StateRun23
	StateAwait23
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateRun1:
		return "RUN1"
	case StateAwait1:
		return "AWAIT1"
	case StateGateFail:
		return "GATE_FAIL"
	case StateGatePass:
		return "GATE_PASS"
	case StateRun23:
		return "RUN23"
	case StateAwait23:
		return "AWAIT23"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Report describes a finished run. Handles of stages that never started are
// nil.
type Report struct {
	// State is where the supervisor stopped; StateDone unless a setup error
	// aborted the run.
	State State
	// Trace lists every state entered, in order.
	Trace []State

	Gate ExitOutcome

	First  *Handle
	Second *Handle
	Third  *Handle
}

// GatePassed reports whether stage 1 succeeded and stages 2 and 3 ran.
func (r *Report) GatePassed() bool {
	return r.Second != nil
}

// Supervisor runs one Invocation.
type Supervisor struct {
	Launcher *Launcher
	Logger   *log.Logger
	Events   *logger.RunLogger

	// OutputMode is requested when the output file is created.
	OutputMode os.FileMode

	report *Report
}

// NewSupervisor creates a Supervisor. A nil logger discards diagnostics and
// nil events disables event recording.
func NewSupervisor(launcher *Launcher, diag *log.Logger, events *logger.RunLogger) *Supervisor {
	if diag == nil {
		diag = log.New(io.Discard, "", 0)
	}
	return &Supervisor{
		Launcher:   launcher,
		Logger:     diag,
		Events:     events,
		OutputMode: DefaultOutputMode,
	}
}

func (s *Supervisor) enter(state State) {
	s.report.State = state
	s.report.Trace = append(s.report.Trace, state)
	s.Logger.Printf("state %s", state)
	s.Events.State(state.String())
}

// fail records a setup error; the run stops in its current state.
func (s *Supervisor) fail(err error) (*Report, error) {
	s.Logger.Printf("aborting in %s: %v", s.report.State, err)
	s.Events.Error(err)
	return s.report, err
}

func (s *Supervisor) spawned(h *Handle) {
	s.Events.Spawn(h.Stage.Index, h.Stage.Name, h.Pid)
}

func (s *Supervisor) exited(h *Handle, outcome ExitOutcome) {
	s.Logger.Printf("stage %d (%s) terminated: %s", h.Stage.Index, h.Stage.Name, outcome)
	s.Events.Exit(h.Stage.Index, h.Stage.Name, h.Pid, outcome.Code, outcome.SignalName())
}

// Run executes `first && second | third > output`. The returned error is set
// only for setup failures (fork, pipe, close, wait); stage failures are
// reported in the Report and don't make the run fail.
func (s *Supervisor) Run(inv Invocation) (*Report, error) {
	s.report = &Report{}
	s.enter(StateStart)

	s.enter(StateRun1)
	first, err := s.Launcher.Spawn(inv.First)
	if err != nil {
		return s.fail(err)
	}
	s.report.First = first
	s.spawned(first)

	s.enter(StateAwait1)
	gate, err := first.Wait()
	if err != nil {
		return s.fail(err)
	}
	s.report.Gate = gate
	s.exited(first, gate)

	if !gate.Success() {
		s.enter(StateGateFail)
		s.Events.Skip(inv.Second.Index, inv.Second.Name)
		s.Events.Skip(inv.Third.Index, inv.Third.Name)
		s.enter(StateDone)
		return s.report, nil
	}
	s.enter(StateGatePass)

	s.enter(StateRun23)
	if err := s.run23(inv); err != nil {
		return s.fail(err)
	}

	s.enter(StateAwait23)
	if err := s.await23(); err != nil {
		return s.fail(err)
	}

	s.enter(StateDone)
	return s.report, nil
}

// run23 starts `second | third > output`. Both children exist before the
// supervisor drops its pipe endpoints; keeping the write end would stop the
// third stage from ever seeing end-of-stream.
func (s *Supervisor) run23(inv Invocation) error {
	pipe, err := NewPipe()
	if err != nil {
		return err
	}
	// Releasing is idempotent; this only matters when a spawn fails.
	defer pipe.Close()

	second, err := s.Launcher.Spawn(inv.Second,
		BindEndpoint(Stdout, pipe.Writer()),
	)
	if err != nil {
		return err
	}
	s.report.Second = second
	s.spawned(second)

	third, err := s.Launcher.Spawn(inv.Third,
		BindEndpoint(Stdin, pipe.Reader()),
		ToFileRedirection(inv.OutputPath, s.OutputMode),
	)
	if err != nil {
		return err
	}
	s.report.Third = third
	s.spawned(third)

	return pipe.Close()
}

// await23 waits for the second and third stages in whichever order they
// finish.
func (s *Supervisor) await23() error {
	var group errgroup.Group
	for _, h := range []*Handle{s.report.Second, s.report.Third} {
		h := h
		group.Go(func() error {
			outcome, err := h.Wait()
			if err != nil {
				return err
			}
			s.exited(h, outcome)
			return nil
		})
	}
	return group.Wait()
}
