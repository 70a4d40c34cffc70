package gpu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// scriptedWindow reports one size per call to FramebufferSize and logs every call.
type scriptedWindow struct {
	sizes [][2]int
	calls []string
}

func (w *scriptedWindow) FramebufferSize() (int, int) {
	size := w.sizes[0]
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
	w.calls = append(w.calls, fmt.Sprintf("size:%dx%d", size[0], size[1]))
	return size[0], size[1]
}

func (w *scriptedWindow) WaitEvents() {
	w.calls = append(w.calls, "wait")
}

func TestWaitForAreaBlocksWhileDegenerate(t *testing.T) {
	win := &scriptedWindow{sizes: [][2]int{{0, 600}, {800, 0}, {800, 600}}}

	waitForArea(win)

	assert.Equal(t, []string{
		"size:0x600",
		"wait",
		"size:800x0",
		"wait",
		"size:800x600",
	}, win.calls)
}

func TestWaitForAreaReturnsAtOnce(t *testing.T) {
	win := &scriptedWindow{sizes: [][2]int{{1, 1}}}

	waitForArea(win)

	assert.Equal(t, []string{"size:1x1"}, win.calls)
}
