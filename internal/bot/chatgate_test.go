package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/afkbot/internal/game"
)

func acceptAll(string) error { return nil }

func TestChatGateConsumesExactlyOneReply(t *testing.T) {
	conn := newFakeConn(game.Handlers{})
	gate := NewChatGate(conn, 0, nil, zerolog.Nop())

	var second bool
	conn.setOnChat(func(string) {
		require.True(t, gate.Observe(game.ChatMessage{Username: "Server", Message: "first"}))
		second = gate.Observe(game.ChatMessage{Username: "Server", Message: "second"})
	})

	var got string
	err := gate.SendCommand(context.Background(), "/register pw pw", func(reply string) error {
		got = reply
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	assert.False(t, second, "only one reply may be consumed")
	assert.Equal(t, []string{"/register pw pw"}, conn.sentChats())
}

func TestChatGateIgnoresChatWhenIdle(t *testing.T) {
	gate := NewChatGate(newFakeConn(game.Handlers{}), 0, nil, zerolog.Nop())
	assert.False(t, gate.Observe(game.ChatMessage{Username: "alice", Message: "hi"}))
}

func TestChatGateOneWaiterAtATime(t *testing.T) {
	conn := newFakeConn(game.Handlers{})
	gate := NewChatGate(conn, 0, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- gate.SendCommand(ctx, "/login pw", acceptAll) }()

	require.Eventually(t, func() bool { return len(conn.sentChats()) == 1 }, time.Second, 5*time.Millisecond)

	err := gate.SendCommand(context.Background(), "/login again", acceptAll)
	assert.ErrorIs(t, err, ErrReplyPending)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// the canceled command is disarmed
	assert.False(t, gate.Observe(game.ChatMessage{Message: "late reply"}))
}

func TestChatGateTimeout(t *testing.T) {
	conn := newFakeConn(game.Handlers{})
	gate := NewChatGate(conn, 20*time.Millisecond, nil, zerolog.Nop())

	err := gate.SendCommand(context.Background(), "/register pw pw", acceptAll)
	assert.ErrorIs(t, err, ErrReplyTimeout)
	assert.False(t, gate.Observe(game.ChatMessage{Message: "too late"}))
}

func TestChatGateSenderFilter(t *testing.T) {
	conn := newFakeConn(game.Handlers{})
	gate := NewChatGate(conn, 0, []string{"Server"}, zerolog.Nop())

	conn.setOnChat(func(string) {
		assert.False(t, gate.Observe(game.ChatMessage{Username: "griefer", Message: "successfully registered"}))
		assert.True(t, gate.Observe(game.ChatMessage{Username: "Server", Message: "Wrong password"}))
	})

	err := gate.SendCommand(context.Background(), "/register pw pw", registerReply)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Wrong password", authErr.Reply)
}

func TestChatGateSendError(t *testing.T) {
	conn := newFakeConn(game.Handlers{})
	conn.chatErr = errors.New("broken pipe")
	gate := NewChatGate(conn, 0, nil, zerolog.Nop())

	err := gate.SendCommand(context.Background(), "/login pw", acceptAll)
	assert.ErrorContains(t, err, "broken pipe")

	// a failed send leaves nothing armed
	conn.mu.Lock()
	conn.chatErr = nil
	conn.mu.Unlock()
	conn.setOnChat(func(string) { gate.Observe(game.ChatMessage{Message: "ok"}) })
	assert.NoError(t, gate.SendCommand(context.Background(), "/login pw", acceptAll))
}
