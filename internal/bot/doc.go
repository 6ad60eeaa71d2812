// Package bot keeps one game session alive and makes it look like a player:
//   - logs in through chat (/register, then /login) when auto-auth is on;
//   - sends scripted chat messages, once or on an interval;
//   - walks to a fixed block via the connector's pathfinder;
//   - moves, jumps, sneaks and looks around at random (anti-afk);
//   - reconnects after a disconnect.
//
// Lifecycle:
//   - Manager.Run dials a Session through a game.Dialer and waits for it to
//     end. With auto-reconnect on, a brand new Session is dialed after the
//     configured delay; nothing from the old one is reused.
//   - A Session goes connecting -> active (first spawn) -> ended (end event).
//     The first spawn activates auth, chat messages, the goal and anti-afk,
//     in that order. Respawns re-activate only with behavior.rearm-on-respawn.
//   - Everything a Session starts is bound to its context, so timers and
//     loops stop when it ends.
//
// Example:
//
//	m := bot.NewManager(cfg, gateway.Dialer{Config: gwcfg, Log: log}, log)
//	go m.Run(ctx)
//	// later
//	m.Restart()
package bot
