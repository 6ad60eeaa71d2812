package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 10 * time.Second
	pongWait     = 30 * time.Second
	readLimit    = 1 << 20
)

// ========================= low-level =========================

// dial with pong handler, read deadline and ping loop
func (c *Client) dialAndSetup(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)

	c.touchActivity()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		c.touchActivity()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.startPing(conn)
	return conn, nil
}

// closeConn is safe to call more than once and from any goroutine.
func (c *Client) closeConn() {
	c.stopPing()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	_ = c.conn.Close()
	c.conn = nil
}

func (c *Client) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) sinceLastActivity() time.Duration {
	n := c.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}

func (c *Client) startPing(conn *websocket.Conn) {
	c.stopPing()

	c.pmu.Lock()
	stop := make(chan struct{})
	c.pingStop = stop
	c.pmu.Unlock()

	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.wmu.Lock()
				if c.conn != conn {
					c.wmu.Unlock()
					return
				}
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
					c.log.Debug().Err(err).Dur("idle", c.sinceLastActivity()).Msg("Ping failed")
				}
				c.wmu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Client) stopPing() {
	c.pmu.Lock()
	defer c.pmu.Unlock()
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}
