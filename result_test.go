package pipeweld_test

import (
	"testing"

	"github.com/pipeweld/pipeweld"
	"github.com/stretchr/testify/require"
)

func TestStageStatusZeroValue(t *testing.T) {
	t.Parallel()

	var st pipeweld.StageStatus
	require.False(t, st.Success())
	require.Equal(t, -1, st.ExitCode())
	require.False(t, st.Signaled())
	require.Nil(t, st.Signal())
}

func TestFirstFailureEmptyResult(t *testing.T) {
	t.Parallel()

	var r pipeweld.Result
	_, ok := r.FirstFailure()
	require.False(t, ok)
}
