package frame

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"golang.org/x/exp/slog"
)

// DefaultClearColor is the background every frame is cleared to.
var DefaultClearColor = [4]float32{0.05, 0.05, 0.08, 1}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Rebuilds and periodic stats are logged at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithResizeMailbox sets the mailbox the window posts resize notifications to.
func WithResizeMailbox(m *Mailbox) Option {
	return func(s *Scheduler) { s.resized = m }
}

// WithClearColor sets the background color.
func WithClearColor(c [4]float32) Option {
	return func(s *Scheduler) { s.clear = c }
}

// WithStatsInterval logs frame stats every d. Zero disables the report.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.statsInterval = d }
}

// Scheduler renders frames into a Chain, rotating through a ring of slots. The number
// of slots is the number of frames that may be in flight at once.
//
// A Scheduler is driven from a single goroutine; only its Mailbox may be posted to
// from elsewhere.
type Scheduler struct {
	chain Chain
	slots *Ring[Slot]
	pass  Pass
	draw  DrawData

	clear   [4]float32
	resized *Mailbox
	log     *slog.Logger

	state State
	// onState, when set, sees every state change.
	onState func(State)

	// imageOwner holds, for every chain image, the slot that last rendered into
	// it, or -1.
	imageOwner []int

	stats         Stats
	statsInterval time.Duration
	reporter      statsReporter
}

// New returns a scheduler over slots. len(slots) must be at least one.
func New(chain Chain, slots []Slot, pass Pass, draw DrawData, opts ...Option) (*Scheduler, error) {
	if chain == nil {
		return nil, errors.New("frame: nil chain")
	}
	if len(slots) == 0 {
		return nil, errors.New("frame: at least one frame slot is required")
	}

	s := &Scheduler{
		chain:   chain,
		slots:   NewRing(slots),
		pass:    pass,
		draw:    draw,
		clear:   DefaultClearColor,
		resized: NewMailbox(),
		log:     slog.Default(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetImageOwners()
	s.reporter = newStatsReporter(s.statsInterval)

	return s, nil
}

// State returns the phase the scheduler is in. Between frames it is StateIdle.
func (s *Scheduler) State() State { return s.state }

// Stats returns the counters gathered so far.
func (s *Scheduler) Stats() Stats { return s.stats }

// Slot returns the index of the slot the next frame will use.
func (s *Scheduler) Slot() int { return s.slots.Index() }

// Resized returns the mailbox resize notifications are posted to.
func (s *Scheduler) Resized() *Mailbox { return s.resized }

// DrawFrame runs one iteration of the frame protocol. A chain that is out of date or
// suboptimal is rebuilt and is not reported as an error; every error returned is
// fatal.
func (s *Scheduler) DrawFrame() error {
	start := hrtime.Now()
	slot := s.slots.Current()
	index := s.slots.Index()

	s.setState(StateIdle)
	if err := slot.Wait(); err != nil {
		return errors.Wrapf(err, "waiting for frame slot %d", index)
	}

	s.setState(StateAcquiring)
	image, status, err := s.chain.Acquire(slot)
	if err != nil {
		return errors.Wrap(err, "failed to acquire swap chain image")
	}
	if status == StatusOutOfDate {
		// The fence is still signaled from the wait above, so nothing is lost by
		// returning here without touching it.
		s.setState(StateInvalidated)
		s.stats.Skipped++
		if err := s.rebuild(status.String()); err != nil {
			return err
		}
		s.setState(StateIdle)
		return nil
	}

	if err := s.claimImage(image, index); err != nil {
		return err
	}

	// Only reset the fence if we are submitting work.
	if err := slot.Reset(); err != nil {
		return errors.Wrapf(err, "resetting frame slot %d", index)
	}

	s.setState(StateRecording)
	rec, err := slot.Begin()
	if err != nil {
		return errors.Wrap(err, "cannot begin command buffer")
	}
	Record(rec, Target{
		Framebuffer: s.chain.Framebuffer(image),
		Extent:      s.chain.Extent(),
		Clear:       s.clear,
	}, s.pass, s.draw)
	if err := slot.End(); err != nil {
		return errors.Wrap(err, "recording commands to buffer failed")
	}

	if err := slot.Submit(); err != nil {
		return errors.Wrap(err, "queue submit error")
	}
	s.setState(StateSubmitted)

	s.setState(StatePresenting)
	resized := s.resized.Drain()
	status, err = s.chain.Present(slot, image)
	if err != nil {
		return errors.Wrap(err, "failed to present swap chain image")
	}
	if status != StatusOK || resized {
		cause := status.String()
		if status == StatusOK {
			cause = "resized"
		}
		s.setState(StateInvalidated)
		if err := s.rebuild(cause); err != nil {
			return err
		}
	}

	s.slots.Advance()
	s.setState(StateIdle)

	s.stats.Frames++
	s.stats.Busy += hrtime.Since(start)
	if fps, ok := s.reporter.due(s.stats); ok {
		s.log.Debug("frame stats",
			slog.Float64("fps", fps),
			slog.Duration("avg_frame", s.stats.AverageFrameTime()),
			slog.Uint64("frames", s.stats.Frames),
			slog.Uint64("rebuilds", s.stats.Rebuilds),
		)
	}

	return nil
}

// Run draws frames until events asks to close or ctx is done. Both are only checked
// between complete frames. The caller is responsible for waiting for the device to
// go idle before releasing anything the frames used.
func (s *Scheduler) Run(ctx context.Context, events Events) error {
	for !events.ShouldClose() {
		if err := ctx.Err(); err != nil {
			s.log.Info("frame loop interrupted", slog.String("reason", err.Error()))
			return nil
		}

		if err := s.DrawFrame(); err != nil {
			return errors.Wrap(err, "error drawing a frame")
		}

		events.PollEvents()
	}

	return nil
}

// claimImage makes sure no other slot is still rendering into image before slot
// index records into it.
func (s *Scheduler) claimImage(image uint32, index int) error {
	if int(image) >= len(s.imageOwner) {
		grown := make([]int, int(image)+1)
		copy(grown, s.imageOwner)
		for i := len(s.imageOwner); i < len(grown); i++ {
			grown[i] = -1
		}
		s.imageOwner = grown
	}

	if owner := s.imageOwner[image]; owner >= 0 && owner != index {
		if err := s.slots.At(owner).Wait(); err != nil {
			return errors.Wrapf(err, "waiting for slot %d to release image %d", owner, image)
		}
	}
	s.imageOwner[image] = index

	return nil
}

func (s *Scheduler) rebuild(cause string) error {
	if err := s.chain.Rebuild(); err != nil {
		return errors.Wrap(err, "recreating swap chain")
	}
	s.stats.Rebuilds++
	s.resetImageOwners()

	extent := s.chain.Extent()
	s.log.Debug("swap chain rebuilt",
		slog.String("cause", cause),
		slog.Int("images", s.chain.ImageCount()),
		slog.Int("width", int(extent.Width)),
		slog.Int("height", int(extent.Height)),
	)
	return nil
}

func (s *Scheduler) setState(state State) {
	s.state = state
	if s.onState != nil {
		s.onState(state)
	}
}

func (s *Scheduler) resetImageOwners() {
	s.imageOwner = make([]int, s.chain.ImageCount())
	for i := range s.imageOwner {
		s.imageOwner[i] = -1
	}
}
