package bot

import (
	"errors"
	"fmt"
)

var (
	// ErrReplyTimeout is returned when no chat reply arrived within the
	// configured reply timeout.
	ErrReplyTimeout = errors.New("timed out waiting for chat reply")
	// ErrReplyPending is returned when a command is sent while another one
	// is still waiting for its reply.
	ErrReplyPending = errors.New("another chat reply is already awaited")
)

type AuthStep string

const (
	StepRegister AuthStep = "register"
	StepLogin    AuthStep = "login"
)

// AuthError is an unexpected reply to an auth command.
type AuthError struct {
	Step  AuthStep
	Reply string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s failed: %q", e.Step, e.Reply)
}
