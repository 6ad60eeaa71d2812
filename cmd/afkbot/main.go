package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/afkbot/internal/bot"
	"github.com/EgorLis/afkbot/internal/config"
	"github.com/EgorLis/afkbot/internal/gateway"
	"github.com/EgorLis/afkbot/internal/keepalive"
	"github.com/EgorLis/afkbot/internal/logging"
)

func main() {
	path := flag.String("config", "settings.yaml", "path to the settings file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Color)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Bot stopped")
		os.Exit(1)
	}
	log.Info().Msg("Bye")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	dialer := gateway.Dialer{
		Config: gateway.Config{
			URL:      cfg.Gateway.URL,
			Username: cfg.Account.Username,
			Password: cfg.Account.Password,
			Auth:     cfg.Account.Type,
			Host:     cfg.Server.IP,
			Port:     cfg.Server.Port,
			Version:  cfg.Server.Version,
		},
		Log: log,
	}
	manager := bot.NewManager(cfg, dialer, log)
	server := keepalive.New(cfg.Keepalive.Addr, manager, log)

	g, ctx := errgroup.WithContext(ctx)
	// the responder stays up after the manager gives up, even on a dial
	// error, until a signal arrives
	g.Go(func() error { return server.ListenAndServe(ctx) })
	g.Go(func() error {
		if err := manager.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Session manager stopped")
		}
		if ctx.Err() == nil {
			log.Info().Msg("No more sessions, waiting for shutdown signal")
		}
		return nil
	})

	log.Info().Msg("running… press Ctrl+C to stop")
	return g.Wait()
}
