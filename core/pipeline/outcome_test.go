package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestExitOutcome(t *testing.T) {
	cases := map[string]struct {
		outcome ExitOutcome
		success bool
		str     string
		signal  string
	}{
		"zero":     {ExitOutcome{Code: 0}, true, "exit status 0", ""},
		"nonzero":  {ExitOutcome{Code: 3}, false, "exit status 3", ""},
		"notfound": {ExitOutcome{Code: 127}, false, "exit status 127", ""},
		"signaled": {ExitOutcome{Code: -1, Signaled: true, Signal: unix.SIGKILL}, false, "killed by SIGKILL", "SIGKILL"},
		// A signal with code 0 still isn't success.
		"signaled zero": {ExitOutcome{Signaled: true, Signal: unix.SIGTERM}, false, "killed by SIGTERM", "SIGTERM"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.success, tc.outcome.Success())
			assert.Equal(t, tc.str, tc.outcome.String())
			assert.Equal(t, tc.signal, tc.outcome.SignalName())
		})
	}
}
