package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/EgorLis/afkbot/internal/game"
)

// ErrNotConnected is returned by commands sent before Connect or after the
// connection is gone.
var ErrNotConnected = errors.New("gateway: not connected")

// Config is everything needed to open one game session through the gateway.
type Config struct {
	URL      string
	Username string
	Password string
	Auth     string
	Host     string
	Port     int
	Version  string
}

// Client is one websocket connection to the gateway, i.e. one game session.
// It is not reusable: once OnEnd fired, dial a new Client.
type Client struct {
	cfg Config
	h   game.Handlers
	log zerolog.Logger

	seq    uint32
	closed atomic.Bool

	wmu  sync.Mutex // serializes socket writes and guards conn
	conn *websocket.Conn

	pmu      sync.Mutex
	pingStop chan struct{}

	lastActivity atomic.Int64 // unix nanos of the last received frame

	emu         sync.RWMutex
	entity      game.Entity
	entityKnown bool

	endOnce sync.Once
}

var _ game.Connector = (*Client)(nil)

func New(cfg Config, h game.Handlers, log zerolog.Logger) *Client {
	return &Client{
		cfg: cfg,
		h:   h,
		log: log.With().Str("component", "gateway").Logger(),
	}
}

// Connect dials the gateway, sends the hello frame and starts the read loop.
// Canceling ctx closes the connection, which ends the session.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dialAndSetup(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.wmu.Lock()
	c.conn = conn
	c.wmu.Unlock()

	err = c.send(reqHello, helloBody(hello{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
		Auth:     c.cfg.Auth,
		Host:     c.cfg.Host,
		Port:     c.cfg.Port,
		Version:  c.cfg.Version,
	}))
	if err != nil {
		c.closeConn()
		return fmt.Errorf("send hello: %w", err)
	}

	c.log.Debug().Str("url", c.cfg.URL).Str("username", c.cfg.Username).Msg("Connected to gateway")

	go c.readLoop(ctx, conn)
	return nil
}

// Close asks the gateway to quit the session and closes the socket.
// OnEnd still fires from the read loop.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if err := c.send(reqQuit, nil); err != nil && !errors.Is(err, ErrNotConnected) {
		c.log.Debug().Err(err).Msg("Failed to send quit")
	}
	c.closeConn()
	return nil
}

func (c *Client) nextSeq() uint32 {
	return atomic.AddUint32(&c.seq, 1)
}

// send writes one request frame. Writes are serialized with a write deadline.
func (c *Client) send(num protowire.Number, body []byte) error {
	data := encodeRequest(c.nextSeq(), num, body)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *Client) end(reason string) {
	c.endOnce.Do(func() {
		if c.h.OnEnd != nil {
			c.h.OnEnd(reason)
		}
	})
}

func (c *Client) emitError(err error) {
	if c.h.OnError != nil {
		c.h.OnError(err)
	}
}

// Dialer opens gateway clients with a fixed Config.
type Dialer struct {
	Config Config
	Log    zerolog.Logger
}

var _ game.Dialer = Dialer{}

func (d Dialer) Dial(ctx context.Context, h game.Handlers) (game.Connector, error) {
	c := New(d.Config, h, d.Log)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
