// Package config loads the bot settings file. Every feature has its own typed
// block; the whole file is validated once, at load time.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Account struct {
	Username string `yaml:"username" env:"AFKBOT_USERNAME"`
	Password string `yaml:"password" env:"AFKBOT_PASSWORD"`
	// Type is the account auth type, "offline" or "microsoft".
	Type string `yaml:"type" env:"AFKBOT_AUTH_TYPE"`
}

type Server struct {
	IP      string `yaml:"ip" env:"AFKBOT_SERVER_IP"`
	Port    int    `yaml:"port" env:"AFKBOT_SERVER_PORT"`
	Version string `yaml:"version" env:"AFKBOT_SERVER_VERSION"`
}

type Gateway struct {
	URL string `yaml:"url" env:"AFKBOT_GATEWAY_URL"`
}

type Position struct {
	Enabled bool `yaml:"enabled"`
	X       int  `yaml:"x"`
	Y       int  `yaml:"y"`
	Z       int  `yaml:"z"`
}

type Behavior struct {
	// RearmOnRespawn re-runs the spawn-time behaviours after every respawn,
	// not only after the first spawn of a session.
	RearmOnRespawn bool `yaml:"rearm-on-respawn"`
}

type AutoAuth struct {
	Enabled  bool   `yaml:"enabled"`
	Password string `yaml:"password" env:"AFKBOT_AUTH_PASSWORD"`
	// ReplyTimeout bounds the wait for a reply to /register and /login.
	// Zero waits until the session ends.
	ReplyTimeout time.Duration `yaml:"reply-timeout"`
	// ServerSenders, when set, restricts which chat senders count as a reply.
	ServerSenders []string `yaml:"server-senders,omitempty"`
}

type ChatMessages struct {
	Enabled  bool     `yaml:"enabled"`
	Messages []string `yaml:"messages,omitempty"`
	Repeat   bool     `yaml:"repeat"`
	// RepeatDelay is in seconds.
	RepeatDelay int `yaml:"repeat-delay"`
}

func (c ChatMessages) Interval() time.Duration {
	return time.Duration(c.RepeatDelay) * time.Second
}

type AntiAFK struct {
	Enabled bool `yaml:"enabled"`
	Sneak   bool `yaml:"sneak"`
}

type AutoReconnect struct {
	Enabled bool `yaml:"enabled"`
	// Delay is in milliseconds.
	Delay int `yaml:"delay"`
}

func (a AutoReconnect) Interval() time.Duration {
	return time.Duration(a.Delay) * time.Millisecond
}

type Utils struct {
	AutoAuth      AutoAuth      `yaml:"auto-auth"`
	ChatMessages  ChatMessages  `yaml:"chat-messages"`
	AntiAFK       AntiAFK       `yaml:"anti-afk"`
	AutoReconnect AutoReconnect `yaml:"auto-reconnect"`
}

type Keepalive struct {
	Addr string `yaml:"addr" env:"AFKBOT_KEEPALIVE_ADDR"`
}

type Log struct {
	Level string `yaml:"level" env:"AFKBOT_LOG_LEVEL"`
	Color bool   `yaml:"color"`
}

type Config struct {
	Account   Account   `yaml:"bot-account"`
	Server    Server    `yaml:"server"`
	Gateway   Gateway   `yaml:"gateway"`
	Position  Position  `yaml:"position"`
	Behavior  Behavior  `yaml:"behavior"`
	Utils     Utils     `yaml:"utils"`
	Keepalive Keepalive `yaml:"keepalive"`
	Log       Log       `yaml:"log"`
}

// Default is the configuration written when no settings file exists yet.
func Default() Config {
	return Config{
		Account: Account{Username: "AfkBot", Type: "offline"},
		Server:  Server{IP: "localhost", Port: 25565, Version: "1.20.1"},
		Gateway: Gateway{URL: "ws://127.0.0.1:8765/bot"},
		Utils: Utils{
			AntiAFK:       AntiAFK{Enabled: true},
			AutoReconnect: AutoReconnect{Enabled: true, Delay: 5000},
		},
		Keepalive: Keepalive{Addr: ":8000"},
		Log:       Log{Level: "info", Color: true},
	}
}

// Load reads path, creating it with Default values when it does not exist,
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return Config{}, err
		}
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Account.Username) == "" {
		errs = append(errs, errors.New("bot-account.username is required"))
	}
	switch c.Account.Type {
	case "", "offline", "microsoft":
	default:
		errs = append(errs, fmt.Errorf("bot-account.type %q must be offline or microsoft", c.Account.Type))
	}
	if c.Server.IP == "" {
		errs = append(errs, errors.New("server.ip is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Gateway.URL, "ws://") && !strings.HasPrefix(c.Gateway.URL, "wss://") {
		errs = append(errs, fmt.Errorf("gateway.url %q must be a ws:// or wss:// URL", c.Gateway.URL))
	}

	u := c.Utils
	if u.AutoAuth.Enabled && u.AutoAuth.Password == "" {
		errs = append(errs, errors.New("utils.auto-auth.password is required when auto-auth is enabled"))
	}
	if u.AutoAuth.ReplyTimeout < 0 {
		errs = append(errs, errors.New("utils.auto-auth.reply-timeout must not be negative"))
	}
	if u.ChatMessages.Enabled && u.ChatMessages.Repeat {
		if u.ChatMessages.RepeatDelay <= 0 {
			errs = append(errs, errors.New("utils.chat-messages.repeat-delay must be positive when repeat is on"))
		}
		if len(u.ChatMessages.Messages) == 0 {
			errs = append(errs, errors.New("utils.chat-messages.messages must not be empty when repeat is on"))
		}
	}
	if u.AutoReconnect.Delay < 0 {
		errs = append(errs, errors.New("utils.auto-reconnect.delay must not be negative"))
	}
	return errors.Join(errs...)
}
