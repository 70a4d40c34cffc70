package frame

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

var starDraw = DrawData{IndexType: vk.IndexTypeUint16, IndexCount: 24}

func newTestScheduler(t *testing.T, k, images int, opts ...Option) (*Scheduler, *fakeChain, []*fakeSlot, *events) {
	t.Helper()

	ev := &events{}
	chain := newFakeChain(ev, images)
	fakes := make([]*fakeSlot, k)
	slots := make([]Slot, k)
	for i := range fakes {
		fakes[i] = newFakeSlot(i, ev)
		slots[i] = fakes[i]
	}

	s, err := New(chain, slots, Pass{}, starDraw, opts...)
	require.NoError(t, err)
	return s, chain, fakes, ev
}

func assertNoViolations(t *testing.T, slots []*fakeSlot) {
	t.Helper()
	for _, s := range slots {
		assert.Empty(t, s.violations, "slot %d", s.id)
	}
}

func TestNewRequiresSlots(t *testing.T) {
	_, err := New(newFakeChain(&events{}, 3), nil, Pass{}, starDraw)
	assert.Error(t, err)

	_, err = New(nil, []Slot{newFakeSlot(0, &events{})}, Pass{}, starDraw)
	assert.Error(t, err)
}

func TestDrawFrameRecordsOneIndexedDraw(t *testing.T) {
	s, chain, slots, ev := newTestScheduler(t, 1, 3)

	require.NoError(t, s.DrawFrame())

	assert.Equal(t, []string{
		"wait:0",
		"acquire:0",
		"reset:0",
		"begin:0",
		"renderpass:0",
		"pipeline:0",
		"vertices:0@0",
		"indices:0@0",
		"viewport:0:800x600",
		"scissor:0:800x600",
		"draw:0",
		"endpass:0",
		"end:0",
		"submit:0",
		"present:0:0",
	}, ev.log)

	require.Len(t, slots[0].rec.draws, 1)
	assert.Equal(t, drawCall{indexCount: 24, instanceCount: 1}, slots[0].rec.draws[0])
	assert.Equal(t, chain.extent, slots[0].rec.ext)

	assert.Equal(t, 0, chain.rebuilds)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, uint64(1), s.Stats().Frames)
	assertNoViolations(t, slots)
}

func TestAcquireOutOfDateRebuildsWithoutDrawing(t *testing.T) {
	s, chain, slots, ev := newTestScheduler(t, 2, 3)
	chain.acquires = []acquireResult{{status: StatusOutOfDate}}

	require.NoError(t, s.DrawFrame())

	assert.Equal(t, []string{"wait:0", "acquire:0", "rebuild"}, ev.log)
	assert.Empty(t, slots[0].rec.draws)
	assert.Equal(t, 1, chain.rebuilds)

	// Neither the counter nor the fence moved.
	assert.Equal(t, 0, s.Slot())
	assert.True(t, slots[0].signaled)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, uint64(0), s.Stats().Frames)
	assert.Equal(t, uint64(1), s.Stats().Skipped)

	// The next iteration renders normally from the same slot.
	require.NoError(t, s.DrawFrame())
	assert.Len(t, slots[0].rec.draws, 1)
	assert.Equal(t, 1, s.Slot())
	assertNoViolations(t, slots)
}

func TestAcquireSuboptimalStillRenders(t *testing.T) {
	s, chain, slots, _ := newTestScheduler(t, 1, 3)
	chain.acquires = []acquireResult{{image: 2, status: StatusSuboptimal}}

	require.NoError(t, s.DrawFrame())

	assert.Len(t, slots[0].rec.draws, 1)
	assert.Equal(t, 0, chain.rebuilds)
}

func TestPresentStatusTriggersRebuild(t *testing.T) {
	for _, status := range []Status{StatusSuboptimal, StatusOutOfDate} {
		t.Run(status.String(), func(t *testing.T) {
			s, chain, slots, ev := newTestScheduler(t, 2, 3)
			chain.presents = []presentResult{{status: status}}

			require.NoError(t, s.DrawFrame())

			// The frame was presented before the chain was rebuilt.
			n := len(ev.log)
			assert.Equal(t, []string{"present:0:0", "rebuild"}, ev.log[n-2:])
			assert.Len(t, slots[0].rec.draws, 1)
			assert.Equal(t, 1, chain.rebuilds)
			assert.Equal(t, 1, s.Slot())
		})
	}
}

func TestResizeNotificationRebuildsAfterPresent(t *testing.T) {
	s, chain, _, ev := newTestScheduler(t, 1, 3)

	s.Resized().Notify()
	s.Resized().Notify()
	require.NoError(t, s.DrawFrame())

	assert.Equal(t, "rebuild", ev.log[len(ev.log)-1])
	assert.Equal(t, 1, chain.rebuilds)
	assert.False(t, s.Resized().Drain())

	require.NoError(t, s.DrawFrame())
	assert.Equal(t, 1, chain.rebuilds)
}

func TestRingReturnsToStartAfterKFrames(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			s, _, slots, _ := newTestScheduler(t, k, 3)
			start := s.Slot()
			for i := 0; i < k; i++ {
				assert.Equal(t, (start+i)%k, s.Slot())
				require.NoError(t, s.DrawFrame())
			}
			assert.Equal(t, start, s.Slot())
			assertNoViolations(t, slots)
		})
	}
}

// Every reset and re-record of a slot must come after a wait on that same slot that
// followed its previous submission.
func TestWaitPrecedesReset(t *testing.T) {
	for k := 1; k <= 3; k++ {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			s, chain, slots, ev := newTestScheduler(t, k, 3)
			for i := 0; i < 5; i++ {
				chain.acquires = append(chain.acquires,
					acquireResult{image: uint32(i % 3)},
					acquireResult{status: StatusOutOfDate},
				)
				chain.presents = append(chain.presents, presentResult{status: StatusSuboptimal})
			}

			for i := 0; i < 20; i++ {
				require.NoError(t, s.DrawFrame())
			}

			waited := make(map[string]bool)
			for _, e := range ev.log {
				op, id, _ := strings.Cut(e, ":")
				id, _, _ = strings.Cut(id, ":")
				switch op {
				case "wait":
					waited[id] = true
				case "submit":
					waited[id] = false
				case "reset", "begin":
					assert.True(t, waited[id], "%s without a wait since the last submit", e)
				}
			}
			assertNoViolations(t, slots)
		})
	}
}

func TestImageStillInFlightIsWaitedOn(t *testing.T) {
	s, chain, slots, ev := newTestScheduler(t, 2, 3)
	chain.acquires = []acquireResult{{image: 1}, {image: 1}}

	require.NoError(t, s.DrawFrame())
	ev.log = nil
	require.NoError(t, s.DrawFrame())

	assert.Equal(t, []string{"wait:1", "acquire:1", "wait:0", "reset:1"}, ev.log[:4])
	assertNoViolations(t, slots)
}

func TestRebuildForgetsImageOwners(t *testing.T) {
	s, chain, _, ev := newTestScheduler(t, 2, 3)
	chain.onRebuild = 2
	chain.acquires = []acquireResult{{image: 1}, {status: StatusOutOfDate}, {image: 1}}

	require.NoError(t, s.DrawFrame())
	require.NoError(t, s.DrawFrame())
	ev.log = nil
	require.NoError(t, s.DrawFrame())

	assert.Equal(t, []string{"wait:1", "acquire:1", "reset:1"}, ev.log[:3])
	assert.Len(t, s.imageOwner, 2)
}

func TestConsecutiveRebuilds(t *testing.T) {
	s, chain, slots, _ := newTestScheduler(t, 1, 3)
	chain.acquires = []acquireResult{{status: StatusOutOfDate}, {status: StatusOutOfDate}}

	require.NoError(t, s.DrawFrame())
	require.NoError(t, s.DrawFrame())

	assert.Equal(t, 2, chain.rebuilds)
	assert.Equal(t, 3, chain.ImageCount())
	assert.Empty(t, slots[0].rec.draws)
	assert.Equal(t, 0, s.Slot())
}

func TestFatalErrors(t *testing.T) {
	errGPU := errors.New("device lost")

	cases := map[string]func(*fakeChain, []*fakeSlot){
		"wait":    func(_ *fakeChain, s []*fakeSlot) { s[0].waitErr = errGPU },
		"acquire": func(c *fakeChain, _ []*fakeSlot) { c.acquires = []acquireResult{{err: errGPU}} },
		"submit":  func(_ *fakeChain, s []*fakeSlot) { s[0].submitErr = errGPU },
		"present": func(c *fakeChain, _ []*fakeSlot) { c.presents = []presentResult{{err: errGPU}} },
		"rebuild": func(c *fakeChain, _ []*fakeSlot) {
			c.acquires = []acquireResult{{status: StatusOutOfDate}}
			c.rebuildErr = errGPU
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			s, chain, slots, _ := newTestScheduler(t, 1, 3)
			setup(chain, slots)

			err := s.DrawFrame()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errGPU))
			assert.Equal(t, 0, s.Slot())
		})
	}
}

func TestRun(t *testing.T) {
	s, _, slots, _ := newTestScheduler(t, 2, 3)
	events := &fakeEvents{frames: 5}

	require.NoError(t, s.Run(context.Background(), events))

	assert.Equal(t, 5, events.polls)
	assert.Equal(t, uint64(5), s.Stats().Frames)
	assert.Len(t, slots[0].rec.draws, 3)
	assert.Len(t, slots[1].rec.draws, 2)
}

func TestRunStopsBetweenFramesOnCancel(t *testing.T) {
	s, _, _, _ := newTestScheduler(t, 1, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx, &fakeEvents{frames: 5}))
	assert.Equal(t, uint64(0), s.Stats().Frames)
}

func TestRunPropagatesFatalError(t *testing.T) {
	s, chain, _, _ := newTestScheduler(t, 1, 3)
	chain.presents = []presentResult{{}, {err: errors.New("surface lost")}}

	err := s.Run(context.Background(), &fakeEvents{frames: 5})
	assert.ErrorContains(t, err, "surface lost")
	assert.Equal(t, uint64(1), s.Stats().Frames)
}

func recordStates(s *Scheduler) *[]State {
	var states []State
	s.onState = func(st State) { states = append(states, st) }
	return &states
}

func TestStateTransitions(t *testing.T) {
	t.Run("frame", func(t *testing.T) {
		s, _, _, _ := newTestScheduler(t, 1, 3)
		states := recordStates(s)

		require.NoError(t, s.DrawFrame())
		assert.Equal(t, []State{
			StateIdle, StateAcquiring, StateRecording, StateSubmitted, StatePresenting, StateIdle,
		}, *states)
	})

	t.Run("acquire out of date", func(t *testing.T) {
		s, chain, _, _ := newTestScheduler(t, 1, 3)
		chain.acquires = []acquireResult{{status: StatusOutOfDate}}
		states := recordStates(s)

		require.NoError(t, s.DrawFrame())
		assert.Equal(t, []State{
			StateIdle, StateAcquiring, StateInvalidated, StateIdle,
		}, *states)
	})

	t.Run("present suboptimal", func(t *testing.T) {
		s, chain, _, _ := newTestScheduler(t, 1, 3)
		chain.presents = []presentResult{{status: StatusSuboptimal}}
		states := recordStates(s)

		require.NoError(t, s.DrawFrame())
		assert.Equal(t, []State{
			StateIdle, StateAcquiring, StateRecording, StateSubmitted, StatePresenting,
			StateInvalidated, StateIdle,
		}, *states)
	})

	t.Run("present fails", func(t *testing.T) {
		s, chain, _, _ := newTestScheduler(t, 1, 3)
		chain.presents = []presentResult{{err: errors.New("surface lost")}}

		require.Error(t, s.DrawFrame())
		assert.Equal(t, StatePresenting, s.State())
	})
}
