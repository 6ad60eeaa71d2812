// Package gateway implements a game connector over WebSocket. The gateway on
// the other end speaks the game protocol and runs pathfinding; this client
// only exchanges small protobuf-encoded frames with it:
//
//   - requests: Hello (credentials, server address, version), Chat, Control,
//     Look, Goal, Quit;
//   - events: Spawn, Move, Chat, GoalReached, Death, Kicked, Error, End.
//
// Events are delivered to game.Handlers from the read loop goroutine, in
// arrival order. OnEnd fires exactly once per Client, after which the Client
// is dead; reconnection is the caller's job (see bot.Manager).
//
// Reliability:
//   - socket writes are serialized (mutex + write deadline);
//   - keep-alive pings every 10s, the read deadline is extended on pong or
//     on any received frame.
//
// Example:
//
//	d := gateway.Dialer{Config: gateway.Config{URL: "ws://127.0.0.1:8765/bot", Username: "afk"}}
//	conn, err := d.Dial(ctx, game.Handlers{
//	    OnSpawn: func() { log.Println("spawned") },
//	    OnEnd:   func(reason string) { log.Println("ended:", reason) },
//	})
//	if err != nil { log.Fatal(err) }
//	defer conn.Close()
//	_ = conn.Chat("hello")
package gateway
