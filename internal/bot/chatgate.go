package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EgorLis/afkbot/internal/game"
)

type chatSender interface {
	Chat(text string) error
}

// ChatGate sends a chat command and treats the next chat line as its reply.
// Only one command may wait for a reply at a time.
type ChatGate struct {
	conn    chatSender
	log     zerolog.Logger
	timeout time.Duration
	senders map[string]struct{}

	mu     sync.Mutex
	waiter chan game.ChatMessage
}

// NewChatGate returns a gate sending through conn. A zero timeout waits for
// the reply until ctx is done. With no senders, a line from anyone counts.
func NewChatGate(conn chatSender, timeout time.Duration, senders []string, log zerolog.Logger) *ChatGate {
	g := &ChatGate{
		conn:    conn,
		log:     log,
		timeout: timeout,
	}
	if len(senders) > 0 {
		g.senders = make(map[string]struct{}, len(senders))
		for _, s := range senders {
			g.senders[s] = struct{}{}
		}
	}
	return g
}

// Observe offers an inbound chat line to the armed command, if any.
// It reports whether the line was taken as a reply.
func (g *ChatGate) Observe(m game.ChatMessage) bool {
	g.mu.Lock()
	w := g.waiter
	if w == nil || !g.accepts(m.Username) {
		g.mu.Unlock()
		return false
	}
	g.waiter = nil
	g.mu.Unlock()

	w <- m
	return true
}

func (g *ChatGate) accepts(username string) bool {
	if g.senders == nil {
		return true
	}
	_, ok := g.senders[username]
	return ok
}

// SendCommand sends text and passes the reply message to classify, whose
// result is returned. Exactly one reply is consumed per call.
func (g *ChatGate) SendCommand(ctx context.Context, text string, classify func(reply string) error) error {
	w := make(chan game.ChatMessage, 1)

	g.mu.Lock()
	if g.waiter != nil {
		g.mu.Unlock()
		return ErrReplyPending
	}
	g.waiter = w
	g.mu.Unlock()

	disarm := func() {
		g.mu.Lock()
		if g.waiter == w {
			g.waiter = nil
		}
		g.mu.Unlock()
	}

	// the reply listener is armed before the command goes out
	if err := g.conn.Chat(text); err != nil {
		disarm()
		return fmt.Errorf("send command: %w", err)
	}

	var timeout <-chan time.Time
	if g.timeout > 0 {
		t := time.NewTimer(g.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case m := <-w:
		g.log.Info().Msgf("[ChatLog] <%s> %s", m.Username, m.Message)
		return classify(m.Message)
	case <-timeout:
		disarm()
		return ErrReplyTimeout
	case <-ctx.Done():
		disarm()
		return ctx.Err()
	}
}
