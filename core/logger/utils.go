package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventState EventType = "state"
	EventSpawn EventType = "spawn"
	EventExit  EventType = "exit"
	EventSkip  EventType = "skip"
	EventError EventType = "error"
)

// LogEntry is one recorded event.
type LogEntry struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	RunID           string    `json:"run_id,omitempty"`
	Type            EventType `json:"type"`

	State   string `json:"state,omitempty"`
	Stage   int    `json:"stage,omitempty"`
	Program string `json:"program,omitempty"`
	Pid     int    `json:"pid,omitempty"`

	ExitCode *int   `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
	Error    string `json:"error,omitempty"`
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures pipeline events.
type Logger struct {
	Record LogRecorder

	// now is the clock used for timestamps.
	now func() time.Time
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format. Writes are serialized so concurrent stages
// don't interleave lines.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
		now: time.Now,
	}
}

// NewRun creates a logger with attached run ID.
func (l *Logger) NewRun() *RunLogger {
	return &RunLogger{Logger: l, runID: fmt.Sprintf("%d", rand.Uint64())}
}

// RunLogger logs events with a shared run ID. All methods are nil-safe so
// callers don't need to check whether event logging is enabled.
type RunLogger struct {
	*Logger
	runID string
}

// RunID returns the ID attached to every event of the run.
func (r *RunLogger) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

func (r *RunLogger) record(le *LogEntry) error {
	if r == nil || r.Logger == nil || r.Record == nil {
		return nil
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	le.TimestampMicros = now().UnixNano() / int64(time.Microsecond)
	le.RunID = r.runID
	return r.Record(le)
}

// State records a supervisor state transition.
func (r *RunLogger) State(state string) error {
	return r.record(&LogEntry{Type: EventState, State: state})
}

// Spawn records that a stage's process was created.
func (r *RunLogger) Spawn(stage int, program string, pid int) error {
	return r.record(&LogEntry{Type: EventSpawn, Stage: stage, Program: program, Pid: pid})
}

// Exit records how a stage terminated. Signal is empty for a normal exit.
func (r *RunLogger) Exit(stage int, program string, pid int, code int, signal string) error {
	le := &LogEntry{Type: EventExit, Stage: stage, Program: program, Pid: pid, Signal: signal}
	if signal == "" {
		le.ExitCode = &code
	}
	return r.record(le)
}

// Skip records that a stage was never started because the gate failed.
func (r *RunLogger) Skip(stage int, program string) error {
	return r.record(&LogEntry{Type: EventSkip, Stage: stage, Program: program})
}

// Error records a setup error that aborted the run.
func (r *RunLogger) Error(err error) error {
	return r.record(&LogEntry{Type: EventError, Error: err.Error()})
}
