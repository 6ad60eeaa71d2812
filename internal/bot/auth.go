package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// replies of the common AuthMe-style login plugins
func registerReply(msg string) error {
	if strings.Contains(msg, "successfully registered") || strings.Contains(msg, "already registered") {
		return nil
	}
	return &AuthError{Step: StepRegister, Reply: msg}
}

func loginReply(msg string) error {
	if strings.Contains(msg, "successfully logged in") {
		return nil
	}
	return &AuthError{Step: StepLogin, Reply: msg}
}

// AuthSequencer runs /register then /login. Runs queued on the same
// sequencer never overlap.
type AuthSequencer struct {
	gate     *ChatGate
	password string
	log      zerolog.Logger

	mu      sync.Mutex
	pending chan struct{} // closed when the last queued run is over
}

func NewAuthSequencer(gate *ChatGate, password string, log zerolog.Logger) *AuthSequencer {
	idle := make(chan struct{})
	close(idle)
	return &AuthSequencer{
		gate:     gate,
		password: password,
		log:      log,
		pending:  idle,
	}
}

// Run registers and then logs in. Login is skipped if registration failed.
func (a *AuthSequencer) Run(ctx context.Context) error {
	a.log.Info().Msg("Sending /register command")
	if err := a.gate.SendCommand(ctx, "/register "+a.password+" "+a.password, registerReply); err != nil {
		return err
	}
	a.log.Info().Msg("Sending /login command")
	return a.gate.SendCommand(ctx, "/login "+a.password, loginReply)
}

// Enqueue chains a Run behind the previously queued one. Failures are logged,
// never retried. The returned channel is closed when this run is over, and
// never before the runs queued ahead of it.
func (a *AuthSequencer) Enqueue(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	a.mu.Lock()
	prev := a.pending
	a.pending = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		select {
		case <-prev:
		case <-ctx.Done():
			// the next run still queues behind the one ahead of this
			<-prev
			return
		}

		err := a.Run(ctx)
		switch {
		case err == nil:
			a.log.Info().Msg("Logged in")
		case ctx.Err() != nil:
			a.log.Debug().Err(err).Msg("Auto-auth aborted")
		default:
			a.log.Error().Err(err).Msg("Auto-auth failed")
		}
	}()
	return done
}
