// Package game describes what the bot needs from a game connector: chat,
// movement controls, looking, pathfinding goals, entity state and lifecycle
// events. The connector itself (protocol, pathfinding) lives elsewhere; see
// package gateway for the websocket implementation.
package game

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
)

// Control is a movement control state that can be held down or released.
type Control string

const (
	Forward Control = "forward"
	Back    Control = "back"
	Left    Control = "left"
	Right   Control = "right"
	Jump    Control = "jump"
	Sneak   Control = "sneak"
)

// Directions are the controls that move the entity horizontally.
var Directions = [...]Control{Forward, Back, Left, Right}

// ChatMessage is one inbound chat line.
type ChatMessage struct {
	Username string
	Message  string
}

// Entity is the bot's own entity state as last reported by the server.
type Entity struct {
	Position mgl64.Vec3
	Yaw      float64
	Pitch    float64
}

// Handlers are lifecycle event subscriptions. Nil handlers are skipped.
// Connectors call them from a single goroutine, in the order events arrive.
type Handlers struct {
	OnSpawn       func()
	OnChat        func(ChatMessage)
	OnGoalReached func()
	OnDeath       func()
	OnKicked      func(reason string)
	OnError       func(err error)
	// OnEnd is called exactly once, when the connection is gone for good.
	OnEnd func(reason string)
}

// Connector is a live connection to the game server.
type Connector interface {
	Chat(text string) error
	SetControlState(c Control, state bool) error
	Look(yaw, pitch float64, force bool) error
	// SetGoal asks the connector's pathfinder to walk to the given block.
	SetGoal(x, y, z int) error
	// Entity reports false until the entity has spawned.
	Entity() (Entity, bool)
	Close() error
}

// Dialer opens a new Connector. Credentials and server address are bound
// into the Dialer by whoever builds it.
type Dialer interface {
	Dial(ctx context.Context, h Handlers) (Connector, error)
}
