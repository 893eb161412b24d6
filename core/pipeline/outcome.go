package pipeline

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitOutcome is how a child terminated: normally with Code, or killed by
// Signal.
type ExitOutcome struct {
	Code     int
	Signaled bool
	Signal   unix.Signal
}

// Success is true only for a normal exit with code 0.
func (o ExitOutcome) Success() bool {
	return !o.Signaled && o.Code == 0
}

// SignalName is the name of the terminating signal, e.g. "SIGKILL", or empty
// for a normal exit.
func (o ExitOutcome) SignalName() string {
	if !o.Signaled {
		return ""
	}
	if name := unix.SignalName(o.Signal); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(o.Signal))
}

func (o ExitOutcome) String() string {
	if o.Signaled {
		return "killed by " + o.SignalName()
	}
	return fmt.Sprintf("exit status %d", o.Code)
}

func outcomeFromState(state *os.ProcessState) ExitOutcome {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return ExitOutcome{
			Code:     -1,
			Signaled: true,
			Signal:   status.Signal(),
		}
	}
	return ExitOutcome{Code: state.ExitCode()}
}
