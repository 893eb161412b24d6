package pipeline

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/pipegate/core/logger"
	"github.com/josephlewis42/pipegate/core/stagexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPipeline(t *testing.T, args ...string) (*Report, error) {
	t.Helper()

	inv, err := ResolveArgs(args)
	require.NoError(t, err)

	return NewSupervisor(newTestLauncher(t), nil, nil).Run(inv)
}

func TestSupervisorGatePass(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")

	report, err := runPipeline(t, "true", "echo", "cat", out)
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, []State{
		StateStart, StateRun1, StateAwait1, StateGatePass, StateRun23, StateAwait23, StateDone,
	}, report.Trace)
	assert.True(t, report.GatePassed())
	assert.True(t, report.Gate.Success())

	for _, h := range []*Handle{report.First, report.Second, report.Third} {
		require.NotNil(t, h)
		outcome, ok := h.Outcome()
		assert.True(t, ok, "stage %d not awaited", h.Stage.Index)
		assert.True(t, outcome.Success())
		assert.Equal(t, []string{h.Stage.Name}, h.Stage.Argv)
	}

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(got))
}

func TestSupervisorGateFail(t *testing.T) {
	cases := map[string]string{
		"nonzero": "false",
		"signal":  writeScript(t, "suicide.sh", "kill -9 $$"),
		"missing": "pipegate-no-such-program",
	}

	for tn, first := range cases {
		first := first
		t.Run(tn, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.txt")

			report, err := runPipeline(t, first, "echo", "cat", out)
			require.NoError(t, err)
			assert.Equal(t, ExitOK, ExitCode(err))

			assert.Equal(t, []State{
				StateStart, StateRun1, StateAwait1, StateGateFail, StateDone,
			}, report.Trace)
			assert.False(t, report.GatePassed())
			assert.Nil(t, report.Second)
			assert.Nil(t, report.Third)

			_, err = os.Stat(out)
			assert.True(t, os.IsNotExist(err), "output file must not be created")
		})
	}

	t.Run("existing file untouched", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")
		require.NoError(t, os.WriteFile(out, []byte("keep me"), 0644))

		_, err := runPipeline(t, "false", "echo", "cat", out)
		require.NoError(t, err)

		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "keep me", string(got))
	})
}

func TestSupervisorTruncatesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(out, []byte(strings.Repeat("old data\n", 100)), 0644))

	_, err := runPipeline(t, "true", "echo", "cat", out)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(got))
}

func TestSupervisorLargeOutput(t *testing.T) {
	// Several times the kernel pipe buffer: the stages have to run
	// concurrently for this to finish.
	const lines = 200000
	producer := writeScript(t, "produce.sh", "yes | head -n 200000")
	out := filepath.Join(t.TempDir(), "out.txt")

	report, err := runPipeline(t, "true", producer, "cat", out)
	require.NoError(t, err)
	assert.True(t, report.GatePassed())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("y\n", lines), string(got))
}

func TestSupervisorStageArgv(t *testing.T) {
	producer := writeScript(t, "args.sh", `echo "$#"`)
	out := filepath.Join(t.TempDir(), "out.txt")

	_, err := runPipeline(t, "true", producer, "cat", out)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0\n", string(got))
}

func TestSupervisorChildFailuresAreLocal(t *testing.T) {
	t.Run("second stage not found", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")

		report, err := runPipeline(t, "true", "pipegate-no-such-program", "cat", out)
		require.NoError(t, err)

		outcome, ok := report.Second.Outcome()
		require.True(t, ok)
		assert.Equal(t, stagexec.ExitNotFound, outcome.Code)

		third, ok := report.Third.Outcome()
		require.True(t, ok)
		assert.True(t, third.Success(), "cat sees end-of-stream")

		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("output file can't be opened", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "missing-dir", "out.txt")

		report, err := runPipeline(t, "true", "echo", "cat", out)
		require.NoError(t, err)
		assert.Equal(t, StateDone, report.State)

		outcome, ok := report.Third.Outcome()
		require.True(t, ok)
		assert.Equal(t, stagexec.ExitRedirect, outcome.Code)
	})

	t.Run("third stage not found", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")

		report, err := runPipeline(t, "true", "echo", "pipegate-no-such-program", out)
		require.NoError(t, err)

		outcome, ok := report.Third.Outcome()
		require.True(t, ok)
		assert.Equal(t, stagexec.ExitNotFound, outcome.Code)

		// The file is opened before the lookup fails.
		_, err = os.Stat(out)
		assert.NoError(t, err)
	})
}

func TestSupervisorForkFailure(t *testing.T) {
	launcher, err := NewLauncher([]string{filepath.Join(t.TempDir(), "missing-trampoline")}, nil, nil)
	require.NoError(t, err)

	inv, err := ResolveArgs([]string{"true", "echo", "cat", filepath.Join(t.TempDir(), "out.txt")})
	require.NoError(t, err)

	report, err := NewSupervisor(launcher, nil, nil).Run(inv)
	assert.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Equal(t, StateRun1, report.State)
	assert.Nil(t, report.First)
}

func openFds(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd:", err)
	}
	return len(entries)
}

func TestSupervisorReleasesPipe(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")

	// Warm up so lazily created runtime descriptors (the poller) are counted on
	// both sides.
	_, err := runPipeline(t, "true", "echo", "cat", out)
	require.NoError(t, err)

	before := openFds(t)
	_, err = runPipeline(t, "true", "echo", "cat", out)
	require.NoError(t, err)

	assert.Equal(t, before, openFds(t))
}

func TestSupervisorDiagnosticsAndEvents(t *testing.T) {
	diag := &bytes.Buffer{}
	events := &bytes.Buffer{}
	out := filepath.Join(t.TempDir(), "out.txt")

	inv, err := ResolveArgs([]string{"true", "echo", "cat", out})
	require.NoError(t, err)

	run := logger.NewJsonLinesLogRecorder(events).NewRun()
	sup := NewSupervisor(newTestLauncher(t), log.New(diag, "", 0), run)
	_, err = sup.Run(inv)
	require.NoError(t, err)

	assert.Contains(t, diag.String(), "state GATE_PASS")
	assert.Contains(t, diag.String(), "stage 2 (echo) terminated: exit status 0")
	assert.Contains(t, diag.String(), "stage 3 (cat) terminated: exit status 0")

	counts := make(map[logger.EventType]int)
	for _, line := range strings.Split(strings.TrimSpace(events.String()), "\n") {
		var le logger.LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &le))
		assert.Equal(t, run.RunID(), le.RunID)
		counts[le.Type]++
	}
	assert.Equal(t, 3, counts[logger.EventSpawn])
	assert.Equal(t, 3, counts[logger.EventExit])
	assert.Equal(t, 7, counts[logger.EventState])
	assert.Zero(t, counts[logger.EventSkip])
}

func TestSupervisorSkipEvents(t *testing.T) {
	events := &bytes.Buffer{}
	inv, err := ResolveArgs([]string{"false", "echo", "cat", filepath.Join(t.TempDir(), "out.txt")})
	require.NoError(t, err)

	_, err = NewSupervisor(newTestLauncher(t), nil, logger.NewJsonLinesLogRecorder(events).NewRun()).Run(inv)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(events.String(), `"type":"skip"`))
	assert.Equal(t, 1, strings.Count(events.String(), `"type":"spawn"`))
}
