package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/EgorLis/afkbot/internal/config"
	"github.com/EgorLis/afkbot/internal/game"
)

// Manager owns the one live Session and replaces it on disconnect.
type Manager struct {
	cfg    config.Config
	dialer game.Dialer
	log    zerolog.Logger

	restartCh chan struct{}
	running   atomic.Bool

	mu         sync.Mutex
	current    *Session
	reconnects int
}

func NewManager(cfg config.Config, dialer game.Dialer, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		dialer:    dialer,
		log:       log.With().Str("component", "session").Logger(),
		restartCh: make(chan struct{}, 1),
	}
}

// Run creates sessions until ctx is done. When a session ends, a new one is
// created after the reconnect delay if auto-reconnect is on; otherwise Run
// returns, with the dial error if the last session could not connect.
func (m *Manager) Run(ctx context.Context) error {
	m.running.Store(true)
	defer func() {
		m.running.Store(false)
		// a restart requested after the last session is dropped
		select {
		case <-m.restartCh:
		default:
		}
	}()

	for {
		s, err := newSession(ctx, m.cfg, m.dialer, m.log)
		if err != nil {
			m.log.Error().Err(err).Msg("Failed to connect")
		} else {
			m.setCurrent(s)

			restarted := false
			select {
			case <-s.Done():
			case <-ctx.Done():
				s.Close()
				<-s.Done()
				return nil
			case <-m.restartCh:
				m.log.Info().Msg("Restarting session")
				s.Close()
				<-s.Done()
				restarted = true
			}
			if restarted {
				m.countReconnect()
				continue
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		rc := m.cfg.Utils.AutoReconnect
		if !rc.Enabled {
			m.log.Info().Msg("Auto-reconnect disabled, not reconnecting")
			return err
		}

		m.log.Info().Dur("delay", rc.Interval()).Msg("Disconnected, attempting to reconnect...")
		t := time.NewTimer(rc.Interval())
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-m.restartCh:
			t.Stop()
		case <-t.C:
		}
		m.countReconnect()
	}
}

// Restart drops the current session and connects again right away, without
// the reconnect delay. It reports false when Run is not active.
func (m *Manager) Restart() bool {
	if !m.running.Load() {
		return false
	}
	select {
	case m.restartCh <- struct{}{}:
	default:
	}
	return true
}

func (m *Manager) setCurrent(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

func (m *Manager) countReconnect() {
	m.mu.Lock()
	m.reconnects++
	m.mu.Unlock()
}

// Snapshot is the manager state reported by the status endpoint.
type Snapshot struct {
	SessionID  string    `json:"session_id,omitempty"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	EndReason  string    `json:"end_reason,omitempty"`
	Reconnects int       `json:"reconnects"`
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	s, reconnects := m.current, m.reconnects
	m.mu.Unlock()

	if s == nil {
		return Snapshot{State: StateConnecting, Reconnects: reconnects}
	}
	return Snapshot{
		SessionID:  s.ID.String(),
		State:      s.State(),
		StartedAt:  s.StartedAt,
		EndReason:  s.EndReason(),
		Reconnects: reconnects,
	}
}
