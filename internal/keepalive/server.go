// Package keepalive serves the small HTTP responder that hosting platforms
// ping to keep the bot process alive.
package keepalive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/EgorLis/afkbot/internal/bot"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Greeting is the body of GET /.
const Greeting = "Bot has arrived"

// Sessions is the part of bot.Manager the responder needs.
type Sessions interface {
	Snapshot() bot.Snapshot
	Restart() bool
}

type Server struct {
	addr       string
	log        zerolog.Logger
	httpServer *http.Server
}

func New(addr string, sessions Sessions, log zerolog.Logger) *Server {
	s := &Server{
		addr: addr,
		log:  log.With().Str("component", "keepalive").Logger(),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           Handler(sessions, s.log),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler routes:
//
//	GET  /         liveness text
//	GET  /status   JSON snapshot of the current session
//	POST /restart  drop the session and reconnect now (409 once the manager stopped)
func Handler(sessions Sessions, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(Greeting))
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sessions.Snapshot()); err != nil {
			log.Error().Err(err).Msg("Failed to write status")
		}
	})

	mux.HandleFunc("POST /restart", func(w http.ResponseWriter, _ *http.Request) {
		if !sessions.Restart() {
			log.Warn().Msg("Restart requested, but the session manager has stopped")
			http.Error(w, "session manager is not running", http.StatusConflict)
			return
		}
		log.Info().Msg("Restart requested")
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

// ListenAndServe runs the server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	s.log.Info().Str("addr", ln.Addr().String()).Msg("Keepalive server listening")
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown keepalive server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve keepalive: %w", err)
	}
}
