package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster sends the scripted chat messages, either once or round-robin
// every interval.
type Broadcaster struct {
	conn     chatSender
	messages []string
	repeat   bool
	interval time.Duration
	log      zerolog.Logger
}

func NewBroadcaster(conn chatSender, messages []string, repeat bool, interval time.Duration, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		conn:     conn,
		messages: messages,
		repeat:   repeat,
		interval: interval,
		log:      log,
	}
}

// Start sends every message right away when not repeating. Otherwise it
// sends one message per interval until ctx is done.
func (b *Broadcaster) Start(ctx context.Context) {
	if len(b.messages) == 0 {
		return
	}
	if !b.repeat || b.interval <= 0 {
		for _, m := range b.messages {
			b.say(m)
		}
		return
	}
	go b.loop(ctx)
}

func (b *Broadcaster) loop(ctx context.Context) {
	t := time.NewTicker(b.interval)
	defer t.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.say(b.messages[i])
			i = (i + 1) % len(b.messages)
		}
	}
}

func (b *Broadcaster) say(msg string) {
	if err := b.conn.Chat(msg); err != nil {
		b.log.Warn().Err(err).Str("message", msg).Msg("Failed to send chat message")
	}
}
