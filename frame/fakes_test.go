package frame

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// events is the shared call log of all fakes in a test.
type events struct {
	log []string
}

func (e *events) add(format string, args ...any) {
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

type drawCall struct {
	indexCount, instanceCount, firstIndex uint32
	vertexOffset                          int32
	firstInstance                         uint32
}

type fakeRecorder struct {
	ev    *events
	slot  int
	draws []drawCall
	ext   vk.Extent2D
}

func (r *fakeRecorder) BeginRenderPass(_ vk.RenderPass, _ vk.Framebuffer, extent vk.Extent2D, _ [4]float32) {
	r.ev.add("renderpass:%d", r.slot)
	r.ext = extent
}
func (r *fakeRecorder) BindPipeline(vk.Pipeline) { r.ev.add("pipeline:%d", r.slot) }
func (r *fakeRecorder) BindVertexBuffer(_ vk.Buffer, offset vk.DeviceSize) {
	r.ev.add("vertices:%d@%d", r.slot, offset)
}
func (r *fakeRecorder) BindIndexBuffer(_ vk.Buffer, offset vk.DeviceSize, _ vk.IndexType) {
	r.ev.add("indices:%d@%d", r.slot, offset)
}
func (r *fakeRecorder) SetViewport(v vk.Viewport) {
	r.ev.add("viewport:%d:%vx%v", r.slot, v.Width, v.Height)
}
func (r *fakeRecorder) SetScissor(s vk.Rect2D) {
	r.ev.add("scissor:%d:%dx%d", r.slot, s.Extent.Width, s.Extent.Height)
}
func (r *fakeRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.ev.add("draw:%d", r.slot)
	r.draws = append(r.draws, drawCall{indexCount, instanceCount, firstIndex, vertexOffset, firstInstance})
}
func (r *fakeRecorder) EndRenderPass() { r.ev.add("endpass:%d", r.slot) }

// fakeSlot simulates a GPU that finishes submitted work as soon as the CPU waits for
// it.
type fakeSlot struct {
	id  int
	ev  *events
	rec *fakeRecorder

	signaled bool // fence state
	inFlight bool // submitted and not yet waited on

	// violations records protocol misuse the scheduler must never commit.
	violations []string

	waitErr, submitErr error
}

func newFakeSlot(id int, ev *events) *fakeSlot {
	return &fakeSlot{id: id, ev: ev, signaled: true, rec: &fakeRecorder{ev: ev, slot: id}}
}

func (s *fakeSlot) ImageAvailable() vk.Semaphore { return nil }
func (s *fakeSlot) RenderFinished() vk.Semaphore { return nil }

func (s *fakeSlot) Wait() error {
	s.ev.add("wait:%d", s.id)
	if s.waitErr != nil {
		return s.waitErr
	}
	if s.inFlight {
		s.inFlight = false
		s.signaled = true
	}
	if !s.signaled {
		s.violations = append(s.violations, "wait on a fence nothing will signal")
	}
	return nil
}

func (s *fakeSlot) Reset() error {
	s.ev.add("reset:%d", s.id)
	if s.inFlight {
		s.violations = append(s.violations, "fence reset while in flight")
	}
	s.signaled = false
	return nil
}

func (s *fakeSlot) Begin() (Recorder, error) {
	s.ev.add("begin:%d", s.id)
	if s.inFlight {
		s.violations = append(s.violations, "command buffer recorded while in flight")
	}
	return s.rec, nil
}

func (s *fakeSlot) End() error {
	s.ev.add("end:%d", s.id)
	return nil
}

func (s *fakeSlot) Submit() error {
	s.ev.add("submit:%d", s.id)
	if s.submitErr != nil {
		return s.submitErr
	}
	s.inFlight = true
	return nil
}

type acquireResult struct {
	image  uint32
	status Status
	err    error
}

type presentResult struct {
	status Status
	err    error
}

// fakeChain hands out images round robin unless scripted results are queued.
type fakeChain struct {
	ev       *events
	images   int
	next     uint32
	acquires []acquireResult
	presents []presentResult
	rebuilds int
	extent   vk.Extent2D

	rebuildErr error
	// onRebuild replaces images after a rebuild when non-zero.
	onRebuild int
}

func newFakeChain(ev *events, images int) *fakeChain {
	return &fakeChain{ev: ev, images: images, extent: vk.Extent2D{Width: 800, Height: 600}}
}

func (c *fakeChain) Acquire(slot Signals) (uint32, Status, error) {
	c.ev.add("acquire:%d", slot.(*fakeSlot).id)
	if len(c.acquires) > 0 {
		r := c.acquires[0]
		c.acquires = c.acquires[1:]
		return r.image, r.status, r.err
	}
	img := c.next
	c.next = (c.next + 1) % uint32(c.images)
	return img, StatusOK, nil
}

func (c *fakeChain) Present(slot Signals, image uint32) (Status, error) {
	c.ev.add("present:%d:%d", slot.(*fakeSlot).id, image)
	if len(c.presents) > 0 {
		r := c.presents[0]
		c.presents = c.presents[1:]
		return r.status, r.err
	}
	return StatusOK, nil
}

func (c *fakeChain) Rebuild() error {
	c.ev.add("rebuild")
	if c.rebuildErr != nil {
		return c.rebuildErr
	}
	c.rebuilds++
	c.next = 0
	if c.onRebuild > 0 {
		c.images = c.onRebuild
	}
	return nil
}

func (c *fakeChain) Framebuffer(uint32) vk.Framebuffer { return nil }
func (c *fakeChain) Extent() vk.Extent2D              { return c.extent }
func (c *fakeChain) ImageCount() int                  { return c.images }

type fakeEvents struct {
	frames int
	polls  int
}

func (e *fakeEvents) ShouldClose() bool { return e.polls >= e.frames }
func (e *fakeEvents) PollEvents()       { e.polls++ }
