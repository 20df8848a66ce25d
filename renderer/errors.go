package renderer

import (
	"github.com/cockroachdb/errors"
)

// Failure categories. Every error returned by this package is marked with
// exactly one of them; test with errors.Is.
var (
	// ErrCapabilityAbsent means no device, queue family, format, extension or
	// memory type satisfies a requirement.
	ErrCapabilityAbsent = errors.New("required capability absent")

	// ErrCreationFailed means a Vulkan creation call reported failure.
	ErrCreationFailed = errors.New("resource creation failed")

	// ErrRuntimeFailure means acquire, submit or present failed in the frame loop.
	ErrRuntimeFailure = errors.New("frame loop failure")
)

// ErrInvalidMesh is returned when mesh data cannot be uploaded as given.
var ErrInvalidMesh = errors.New("invalid mesh data")

func capabilityAbsentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCapabilityAbsent)
}

func creationFailed(err error, what string) error {
	if errors.Is(err, ErrCapabilityAbsent) || errors.Is(err, ErrCreationFailed) {
		return errors.Wrapf(err, "create %s", what)
	}
	return errors.Mark(errors.Wrapf(err, "create %s", what), ErrCreationFailed)
}

func runtimeFailure(err error, step string) error {
	return errors.Mark(errors.Wrapf(err, "draw: %s", step), ErrRuntimeFailure)
}

// ExitCode maps an error returned from Init or Draw to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCapabilityAbsent):
		return 2
	case errors.Is(err, ErrCreationFailed):
		return 3
	case errors.Is(err, ErrRuntimeFailure):
		return 4
	default:
		return 1
	}
}
