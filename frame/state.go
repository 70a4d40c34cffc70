package frame

import "fmt"

// State is the phase of the frame the scheduler is in.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StatePresenting
	StateInvalidated
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateAcquiring:   "acquiring",
	StateRecording:   "recording",
	StateSubmitted:   "submitted",
	StatePresenting:  "presenting",
	StateInvalidated: "invalidated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Status is the outcome of acquiring or presenting a swapchain image. Everything
// other than StatusOK asks for the surface chain to be rebuilt; errors are reported
// separately and are always fatal.
type Status int

const (
	StatusOK Status = iota
	// StatusSuboptimal means the image can still be used but the chain no longer
	// matches the surface exactly.
	StatusSuboptimal
	// StatusOutOfDate means the chain can no longer be used with the surface.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}
