package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/config"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	BaseURL    string
	SessionID  string
	Debug      bool
}

// LoadConfig reads .env, the configuration file and the environment, then
// applies the flags on top.
func LoadConfig(opts Options) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.BaseURL != "" {
		cfg.APIBaseURL = opts.BaseURL
	}
	if opts.SessionID != "" {
		cfg.SessionID = opts.SessionID
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newChat(cfg *config.Config, logger *slog.Logger) (*rapport.Chat, error) {
	chat, err := rapport.New(
		rapport.WithConfig(cfg),
		rapport.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing chat: %w", err)
	}
	logger.Info("Session Created", "session_id", chat.SessionID(), "base_url", cfg.APIBaseURL)
	return chat, nil
}
