package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	reason := "socketClosed"
	done := make(chan struct{})
	defer func() {
		close(done)
		c.closed.Store(true)
		c.closeConn()
		c.end(reason)
	}()

	// close on context cancel
	go func() {
		select {
		case <-ctx.Done():
			c.closed.Store(true)
			c.closeConn()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.emitError(err)
				reason = err.Error()
			}
			return
		}
		c.touchActivity()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, err := decodeEvent(data)
		if err != nil {
			c.emitError(fmt.Errorf("decode event: %w", err))
			continue
		}
		if ev.kind == eventEnd {
			if ev.text != "" {
				reason = ev.text
			}
			return
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev event) {
	switch ev.kind {
	case eventSpawn:
		c.setEntity(ev.entity)
		if c.h.OnSpawn != nil {
			c.h.OnSpawn()
		}
	case eventMove:
		c.setEntity(ev.entity)
	case eventChat:
		if c.h.OnChat != nil {
			c.h.OnChat(ev.chat)
		}
	case eventGoalReached:
		c.setPosition(ev.entity.Position)
		if c.h.OnGoalReached != nil {
			c.h.OnGoalReached()
		}
	case eventDeath:
		c.setEntity(ev.entity)
		if c.h.OnDeath != nil {
			c.h.OnDeath()
		}
	case eventKicked:
		if c.h.OnKicked != nil {
			c.h.OnKicked(ev.text)
		}
	case eventError:
		c.emitError(errors.New(ev.text))
	default:
		c.log.Debug().Msg("Skipping unknown gateway frame")
	}
}
