package gateway

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/EgorLis/afkbot/internal/game"
)

// ========================= high-level API =========================

func (c *Client) Chat(text string) error {
	return c.send(reqChat, chatBody(text))
}

func (c *Client) SetControlState(ctl game.Control, state bool) error {
	return c.send(reqControl, controlBody(ctl, state))
}

func (c *Client) Look(yaw, pitch float64, force bool) error {
	if err := c.send(reqLook, lookBody(yaw, pitch, force)); err != nil {
		return err
	}
	c.emu.Lock()
	c.entity.Yaw, c.entity.Pitch = yaw, pitch
	c.emu.Unlock()
	return nil
}

func (c *Client) SetGoal(x, y, z int) error {
	return c.send(reqGoal, goalBody(x, y, z))
}

func (c *Client) Entity() (game.Entity, bool) {
	c.emu.RLock()
	defer c.emu.RUnlock()
	return c.entity, c.entityKnown
}

func (c *Client) setEntity(e game.Entity) {
	c.emu.Lock()
	c.entity = e
	c.entityKnown = true
	c.emu.Unlock()
}

func (c *Client) setPosition(pos mgl64.Vec3) {
	c.emu.Lock()
	c.entity.Position = pos
	c.emu.Unlock()
}
