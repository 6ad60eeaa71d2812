package bot

import (
	"context"
	crand "crypto/rand"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EgorLis/afkbot/internal/game"
)

const (
	idleFirstDelay    = 3 * time.Second
	minActionDuration = 800 * time.Millisecond
	maxActionDuration = 3300 * time.Millisecond
	minIdleGap        = 2000 * time.Millisecond
	maxIdleGap        = 6000 * time.Millisecond

	jumpChance  = 0.3
	lookChance  = 0.4
	sneakChance = 0.2

	maxYawDelta = math.Pi / 4
	maxPitch    = 0.15
)

// mover is the part of the connector the idle loop drives.
type mover interface {
	SetControlState(c game.Control, state bool) error
	Look(yaw, pitch float64, force bool) error
	Entity() (game.Entity, bool)
}

// idleAction is one randomized anti-afk cycle.
type idleAction struct {
	direction game.Control
	duration  time.Duration
	jump      bool
	sneak     bool
	look      bool
	yawDelta  float64
	pitch     float64
	// next is the delay from the start of this cycle to the next one
	next time.Duration
}

// uniformDuration draws a whole number of milliseconds in [lo, hi].
func uniformDuration(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	span := int64((hi - lo) / time.Millisecond)
	return lo + time.Duration(rng.Int64N(span+1))*time.Millisecond
}

// uniform draws from [-half, half).
func uniform(rng *rand.Rand, half float64) float64 {
	return (rng.Float64()*2 - 1) * half
}

func planIdleAction(rng *rand.Rand, sneakEnabled bool) idleAction {
	a := idleAction{
		direction: game.Directions[rng.IntN(len(game.Directions))],
		duration:  uniformDuration(rng, minActionDuration, maxActionDuration),
		jump:      rng.Float64() < jumpChance,
		look:      rng.Float64() < lookChance,
		sneak:     sneakEnabled && rng.Float64() < sneakChance,
	}
	if a.look {
		a.yawDelta = uniform(rng, maxYawDelta)
		a.pitch = uniform(rng, maxPitch)
	}
	a.next = uniformDuration(rng, minIdleGap, maxIdleGap)
	return a
}

func newRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// IdleScheduler moves the entity around at random so the server does not
// flag it as inactive. It runs until Stop or until the Start context is done.
type IdleScheduler struct {
	conn  mover
	sneak bool
	log   zerolog.Logger
	rng   *rand.Rand
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewIdleScheduler(conn mover, sneak bool, log zerolog.Logger) *IdleScheduler {
	return &IdleScheduler{
		conn:  conn,
		sneak: sneak,
		log:   log,
		rng:   newRand(),
		after: time.After,
	}
}

// Start schedules the first cycle. Calling Start on a running scheduler is a no-op.
func (s *IdleScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for it to exit. Held controls are still
// released by their own timers.
func (s *IdleScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *IdleScheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	tick := s.after(idleFirstDelay)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}

		if _, ok := s.conn.Entity(); !ok {
			s.log.Debug().Msg("Entity position unknown, anti-afk loop stops")
			return
		}
		a := planIdleAction(s.rng, s.sneak)
		tick = s.after(a.next)
		s.perform(ctx, a)
	}
}

func (s *IdleScheduler) perform(ctx context.Context, a idleAction) {
	s.set(a.direction, true)
	if a.jump {
		s.set(game.Jump, true)
	}
	if a.sneak {
		s.set(game.Sneak, true)
	}
	if a.look {
		e, _ := s.conn.Entity()
		if err := s.conn.Look(e.Yaw+a.yawDelta, a.pitch, false); err != nil {
			s.log.Debug().Err(err).Msg("Look failed")
		}
	}

	release := s.after(a.duration)
	go func() {
		select {
		case <-release:
		case <-ctx.Done():
		}
		s.set(a.direction, false)
		s.set(game.Jump, false)
		s.set(game.Sneak, false)
	}()
}

func (s *IdleScheduler) set(c game.Control, state bool) {
	if err := s.conn.SetControlState(c, state); err != nil {
		s.log.Debug().Err(err).Str("control", string(c)).Bool("state", state).Msg("Control state failed")
	}
}
