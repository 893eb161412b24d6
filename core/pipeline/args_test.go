package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveArgs(t *testing.T) {
	t.Run("four arguments", func(t *testing.T) {
		inv, err := ResolveArgs([]string{"true", "echo", "cat", "out.txt"})
		require.NoError(t, err)

		assert.Equal(t, NewStage(1, "true"), inv.First)
		assert.Equal(t, NewStage(2, "echo"), inv.Second)
		assert.Equal(t, NewStage(3, "cat"), inv.Third)
		assert.Equal(t, "out.txt", inv.OutputPath)
	})

	t.Run("extra arguments are ignored", func(t *testing.T) {
		inv, err := ResolveArgs([]string{"a", "b", "c", "d", "e"})
		require.NoError(t, err)
		assert.Equal(t, "d", inv.OutputPath)
	})

	for _, args := range [][]string{nil, {"true"}, {"true", "echo"}, {"true", "echo", "cat"}} {
		args := args
		t.Run("usage error", func(t *testing.T) {
			_, err := ResolveArgs(args)

			var usageErr *UsageError
			require.True(t, errors.As(err, &usageErr))
			assert.Equal(t, len(args), usageErr.Got)
			assert.Equal(t, ExitFailure, ExitCode(err))
		})
	}
}

func TestNewStage(t *testing.T) {
	stage := NewStage(2, "echo")

	assert.Equal(t, []string{"echo"}, stage.Argv)
	assert.Equal(t, "echo", stage.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(&PipeError{Err: errors.New("EMFILE")}))
	assert.Equal(t, ExitFailure, ExitCode(&ForkError{Stage: NewStage(1, "x"), Err: errors.New("EAGAIN")}))
}
