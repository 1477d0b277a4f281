package pipeweld_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/pipeweld/pipeweld"
	"github.com/stretchr/testify/require"
)

func TestTerminate(t *testing.T) {
	t.Parallel()
	p := lookPath(t, "sleep")

	g := pipeweld.NewGraph().SetTermGrace(5 * time.Second)
	g.AddNode(command(p[0], "30"), pipeweld.Null(), pipeweld.Null(), pipeweld.Null())

	pl, err := pipeweld.Spawn(t.Context(), g)
	require.NoError(t, err)
	require.NoError(t, pl.Terminate())

	result, err := pl.Await()
	require.NoError(t, err)
	require.False(t, result.Succeeded)

	st := result.Stages[0]
	require.False(t, st.Success())
	require.Equal(t, -1, st.ExitCode())
	require.True(t, st.Signaled())
	require.Equal(t, syscall.SIGTERM, st.Signal())

	// terminating an already finished pipeline is a no-op
	require.NoError(t, pl.Terminate())
}

func TestContextCancelStopsStages(t *testing.T) {
	t.Parallel()
	p := lookPath(t, "sleep")

	ctx, cancel := context.WithCancel(t.Context())
	g := pipeweld.NewGraph().SetTermGrace(5 * time.Second)
	g.AddNode(command(p[0], "30"), pipeweld.Null(), pipeweld.Null(), pipeweld.Null())

	pl, err := pipeweld.Spawn(ctx, g)
	require.NoError(t, err)
	cancel()

	result, err := pl.Await()
	require.NoError(t, err)
	require.False(t, result.Succeeded)
	require.False(t, result.Stages[0].Success())
	require.True(t, result.Stages[0].Signaled())
}

func TestAwaitIdempotent(t *testing.T) {
	t.Parallel()
	p := lookPath(t, "sh")

	g := pipeweld.NewGraph()
	g.AddNode(command(p[0], "-c", "exit 7"), pipeweld.Null(), pipeweld.Null(), pipeweld.Null())

	pl, err := pipeweld.Spawn(t.Context(), g)
	require.NoError(t, err)

	first, err := pl.Await()
	require.NoError(t, err)
	second, err := pl.Await()
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.False(t, first.Succeeded)
	require.Equal(t, 7, first.Stages[0].ExitCode())
	require.False(t, first.Stages[0].Signaled())
}
