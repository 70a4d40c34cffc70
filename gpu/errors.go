package gpu

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrNoSuitableDevice is returned when no physical device can render to the
	// surface.
	ErrNoSuitableDevice = errors.New("failed to find a suitable GPU")

	// ErrPipelineBuildFailed marks every failure while building the render pass or
	// the graphics pipeline.
	ErrPipelineBuildFailed = errors.New("pipeline build failed")

	// ErrValidationUnavailable is returned when validation was requested but the
	// layer is not installed.
	ErrValidationUnavailable = errors.New("validation layers requested but not available")

	// ErrSwapchain marks acquire or present results the chain cannot recover from
	// by rebuilding.
	ErrSwapchain = errors.New("swap chain error")
)

// vkError returns nil for a successful result and the result wrapped with msg
// otherwise.
func vkError(res vk.Result, msg string) error {
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, msg)
	}
	return nil
}

// cstrings returns names with the terminating NUL the Vulkan bindings expect.
func cstrings(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		if len(name) == 0 || name[len(name)-1] != '\x00' {
			name += "\x00"
		}
		out[i] = name
	}
	return out
}
