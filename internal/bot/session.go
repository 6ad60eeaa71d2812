package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EgorLis/afkbot/internal/config"
	"github.com/EgorLis/afkbot/internal/game"
)

// State is the lifecycle state of a session.
type State string

const (
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateEnded      State = "ended"
)

type eventKind int

const (
	evSpawn eventKind = iota
	evChat
	evGoalReached
	evDeath
	evKicked
	evError
	evEnd
)

type sessionEvent struct {
	kind eventKind
	chat game.ChatMessage
	text string
	err  error
}

// Session is one connection to the server and everything bound to it:
// the auth chain, the broadcaster and the idle loop. Connector events are
// handled one at a time by the session loop.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	cfg  config.Config
	log  zerolog.Logger
	conn game.Connector
	gate *ChatGate
	auth *AuthSequencer

	ctx    context.Context
	cancel context.CancelFunc
	events chan sessionEvent
	done   chan struct{}

	mu             sync.Mutex
	state          State
	spawns         int
	endReason      string
	stopBehaviours context.CancelFunc
	idle           *IdleScheduler
}

// newSession dials the connector and starts the session loop.
func newSession(parent context.Context, cfg config.Config, dialer game.Dialer, log zerolog.Logger) (*Session, error) {
	s := &Session{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		cfg:       cfg,
		events:    make(chan sessionEvent, 64),
		done:      make(chan struct{}),
		state:     StateConnecting,
	}
	s.log = log.With().Str("session", s.ID.String()).Logger()
	s.ctx, s.cancel = context.WithCancel(parent)

	s.log.Info().
		Str("server", fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port)).
		Str("username", cfg.Account.Username).
		Msg("Connecting")

	conn, err := dialer.Dial(s.ctx, s.handlers())
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.conn = conn

	auth := cfg.Utils.AutoAuth
	s.gate = NewChatGate(conn, auth.ReplyTimeout, auth.ServerSenders, s.log.With().Str("component", "auth").Logger())
	s.auth = NewAuthSequencer(s.gate, auth.Password, s.log.With().Str("component", "auth").Logger())

	go s.run()
	return s, nil
}

func (s *Session) handlers() game.Handlers {
	return game.Handlers{
		OnSpawn:       func() { s.push(sessionEvent{kind: evSpawn}) },
		OnChat:        func(m game.ChatMessage) { s.push(sessionEvent{kind: evChat, chat: m}) },
		OnGoalReached: func() { s.push(sessionEvent{kind: evGoalReached}) },
		OnDeath:       func() { s.push(sessionEvent{kind: evDeath}) },
		OnKicked:      func(reason string) { s.push(sessionEvent{kind: evKicked, text: reason}) },
		OnError:       func(err error) { s.push(sessionEvent{kind: evError, err: err}) },
		OnEnd:         func(reason string) { s.push(sessionEvent{kind: evEnd, text: reason}) },
	}
}

func (s *Session) push(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	reason := "session closed"
	defer func() { s.finish(reason) }()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			if ev.kind == evEnd {
				reason = ev.text
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev sessionEvent) {
	switch ev.kind {
	case evSpawn:
		s.onSpawn()
	case evChat:
		if !s.gate.Observe(ev.chat) {
			s.log.Debug().Msgf("[ChatLog] <%s> %s", ev.chat.Username, ev.chat.Message)
		}
	case evGoalReached:
		s.log.Info().Str("position", s.position()).Msg("Reached target")
	case evDeath:
		s.log.Warn().Str("position", s.position()).Msg("Bot died, respawned")
	case evKicked:
		s.log.Warn().Str("reason", ev.text).Msg("Kicked")
	case evError:
		s.log.Error().Err(ev.err).Msg("Connector error")
	}
}

func (s *Session) onSpawn() {
	s.mu.Lock()
	s.spawns++
	first := s.spawns == 1
	if first {
		s.state = StateActive
	}
	s.mu.Unlock()

	if first {
		s.log.Info().Msg("Bot joined the server")
		s.activate()
		return
	}
	if s.cfg.Behavior.RearmOnRespawn {
		s.log.Info().Msg("Respawned, re-arming behaviours")
		s.activate()
	}
}

// activate starts the spawn-time behaviours in order: auth, chat messages,
// goal, anti-afk. Behaviours of a previous activation are stopped first.
func (s *Session) activate() {
	s.mu.Lock()
	if s.stopBehaviours != nil {
		s.stopBehaviours()
	}
	prevIdle := s.idle
	s.idle = nil
	ctx, cancel := context.WithCancel(s.ctx)
	s.stopBehaviours = cancel
	s.mu.Unlock()

	// the old idle loop must be gone before a new one presses controls
	if prevIdle != nil {
		prevIdle.Stop()
	}

	u := s.cfg.Utils

	if u.AutoAuth.Enabled {
		s.log.Info().Msg("Started auto-auth module")
		s.auth.Enqueue(ctx)
	}

	if u.ChatMessages.Enabled {
		s.log.Info().Msg("Started chat-messages module")
		cm := u.ChatMessages
		NewBroadcaster(s.conn, cm.Messages, cm.Repeat, cm.Interval(),
			s.log.With().Str("component", "chat").Logger()).Start(ctx)
	}

	if p := s.cfg.Position; p.Enabled {
		s.log.Info().Msgf("Moving to (%d, %d, %d)", p.X, p.Y, p.Z)
		if err := s.conn.SetGoal(p.X, p.Y, p.Z); err != nil {
			s.log.Error().Err(err).Msg("Failed to set goal")
		}
	}

	if u.AntiAFK.Enabled {
		s.log.Info().Msg("Anti-AFK started")
		idle := NewIdleScheduler(s.conn, u.AntiAFK.Sneak,
			s.log.With().Str("component", "anti-afk").Logger())
		idle.Start(ctx)
		s.mu.Lock()
		s.idle = idle
		s.mu.Unlock()
	}
}

func (s *Session) position() string {
	e, ok := s.conn.Entity()
	if !ok {
		return "unknown"
	}
	p := e.Position
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", p.X(), p.Y(), p.Z())
}

func (s *Session) finish(reason string) {
	s.mu.Lock()
	s.state = StateEnded
	s.endReason = reason
	idle := s.idle
	s.mu.Unlock()

	// stops every behaviour bound to this session
	s.cancel()
	if idle != nil {
		idle.Stop()
	}
	_ = s.conn.Close()

	s.log.Info().Str("reason", reason).Msg("Disconnected")
	close(s.done)
}

// Close ends the session. Done is closed once it is over.
func (s *Session) Close() {
	s.cancel()
	_ = s.conn.Close()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) EndReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReason
}
