package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/afkbot/internal/game"
)

type controlCall struct {
	control game.Control
	state   bool
}

type lookCall struct {
	yaw, pitch float64
	force      bool
}

// fakeConn is an in-memory game.Connector that records every command.
type fakeConn struct {
	h game.Handlers

	mu       sync.Mutex
	chats    []string
	controls []controlCall
	looks    []lookCall
	goals    [][3]int
	entity   game.Entity
	known    bool
	closed   bool
	chatErr  error
	onChat   func(text string)
	endOnce  sync.Once
}

func newFakeConn(h game.Handlers) *fakeConn {
	return &fakeConn{h: h}
}

func (c *fakeConn) Chat(text string) error {
	c.mu.Lock()
	if c.chatErr != nil {
		err := c.chatErr
		c.mu.Unlock()
		return err
	}
	c.chats = append(c.chats, text)
	hook := c.onChat
	c.mu.Unlock()

	if hook != nil {
		hook(text)
	}
	return nil
}

func (c *fakeConn) SetControlState(ctl game.Control, state bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, controlCall{ctl, state})
	return nil
}

func (c *fakeConn) Look(yaw, pitch float64, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.looks = append(c.looks, lookCall{yaw, pitch, force})
	return nil
}

func (c *fakeConn) SetGoal(x, y, z int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goals = append(c.goals, [3]int{x, y, z})
	return nil
}

func (c *fakeConn) Entity() (game.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity, c.known
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	go c.end("closed by client")
	return nil
}

// end mimics the connector going away.
func (c *fakeConn) end(reason string) {
	c.endOnce.Do(func() {
		if c.h.OnEnd != nil {
			c.h.OnEnd(reason)
		}
	})
}

func (c *fakeConn) spawn(e game.Entity) {
	c.mu.Lock()
	c.entity, c.known = e, true
	c.mu.Unlock()
	c.h.OnSpawn()
}

func (c *fakeConn) setOnChat(fn func(text string)) {
	c.mu.Lock()
	c.onChat = fn
	c.mu.Unlock()
}

func (c *fakeConn) sentChats() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chats...)
}

func (c *fakeConn) controlCalls() []controlCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]controlCall(nil), c.controls...)
}

func (c *fakeConn) goalCalls() [][3]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][3]int(nil), c.goals...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out fakeConns and records when each dial happened.
type fakeDialer struct {
	mu    sync.Mutex
	times []time.Time
	conns []*fakeConn
	err   error

	dialed chan *fakeConn
	setup  func(*fakeConn)
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dialed: make(chan *fakeConn, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, h game.Handlers) (game.Connector, error) {
	d.mu.Lock()
	d.times = append(d.times, time.Now())
	err, setup := d.err, d.setup
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c := newFakeConn(h)
	if setup != nil {
		setup(c)
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	d.dialed <- c
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.times)
}

func (d *fakeDialer) dialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.times...)
}

func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.dialed:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no dial happened")
		return nil
	}
}

var errDial = errors.New("connection refused")

// fakeTimers replaces time.After and lets the test fire each timer.
type fakeTimers struct {
	reqs chan timerReq
}

type timerReq struct {
	d time.Duration
	c chan time.Time
}

func (r timerReq) fire() {
	r.c <- time.Now()
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{reqs: make(chan timerReq, 16)}
}

func (f *fakeTimers) after(d time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	f.reqs <- timerReq{d: d, c: c}
	return c
}

func (f *fakeTimers) next(t *testing.T) timerReq {
	t.Helper()
	select {
	case r := <-f.reqs:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no timer requested")
		return timerReq{}
	}
}
