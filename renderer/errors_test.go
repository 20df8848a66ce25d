package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 2, ExitCode(capabilityAbsentf("no GPU")))
	require.Equal(t, 3, ExitCode(creationFailed(errors.New("boom"), "instance")))
	require.Equal(t, 4, ExitCode(runtimeFailure(errors.New("boom"), "present")))
	require.Equal(t, 1, ExitCode(errors.New("other")))
}

func TestCreationFailedKeepsCapabilityCategory(t *testing.T) {
	err := creationFailed(capabilityAbsentf("no memory type"), "vertex buffer")
	require.True(t, errors.Is(err, ErrCapabilityAbsent))
	require.Equal(t, 2, ExitCode(err))
	require.Contains(t, err.Error(), "create vertex buffer")
}

func TestCategoriesSurviveWrapping(t *testing.T) {
	err := errors.Wrap(runtimeFailure(errors.New("device lost"), "submit frame"), "main loop")
	require.True(t, errors.Is(err, ErrRuntimeFailure))
	require.Contains(t, err.Error(), "draw: submit frame")
}
