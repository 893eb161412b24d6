package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged runs.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Runs        int          `json:"runs"`
	Gate        StrCounter   `json:"gate"`
	Exits       *PathCounter `json:"exits"`
	Skipped     StrCounter   `json:"skipped"`
	SetupErrors StrCounter   `json:"setup_errors"`

	runs map[string]bool
}

func NewReport() *Report {
	return &Report{
		Exits: NewPathCounter("stage", "program", "status"),
		runs:  make(map[string]bool),
	}
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	if le.RunID != "" && !r.runs[le.RunID] {
		r.runs[le.RunID] = true
		r.Runs++
	}

	switch le.Type {
	case EventExit:
		status := exitStatus(le)
		r.Exits.Increment(fmt.Sprint(le.Stage), le.Program, status)
		if le.Stage == 1 {
			if le.ExitCode != nil && *le.ExitCode == 0 {
				r.Gate.Increment("pass")
			} else {
				r.Gate.Increment("fail")
			}
		}
	case EventSkip:
		r.Skipped.Increment(le.Program)
	case EventError:
		r.SetupErrors.Increment(le.Error)
	case EventState, EventSpawn:
		// Ignore
	default:
		r.InvalidEntries.Increment(string(le.Type))
	}
}

func exitStatus(le *LogEntry) string {
	switch {
	case le.Signal != "":
		return "killed by " + le.Signal
	case le.ExitCode != nil:
		return fmt.Sprintf("exit status %d", *le.ExitCode)
	default:
		return "unknown"
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of column values.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Count returns how many times the tuple was seen.
func (ctr *PathCounter) Count(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON lists the tuples, most frequent first.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
