package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/byteowlz/oqto-mux/internal/auth"
	"github.com/byteowlz/oqto-mux/internal/config"
	"github.com/byteowlz/oqto-mux/internal/logger"
	"github.com/byteowlz/oqto-mux/internal/mux"
)

var (
	cfgPath  string
	origin   string
	token    string
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "oqto-mux",
		Short: "oqto-mux is a multiplexed client for the oqto backend",
		Long: "Talks to an oqto backend over a single multiplexed WebSocket: " +
			"agent chat, workspace files, remote terminals, shell history and issues.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.oqto/config.yaml)")
	root.PersistentFlags().StringVar(&origin, "origin", "", "Backend origin, e.g. https://oqto.local:8443")
	root.PersistentFlags().StringVar(&token, "token", "", "Bearer token")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	root.AddCommand(
		chatCmd(),
		statusCmd(),
		filesCmd(),
		termCmd(),
		historyCmd(),
		issuesCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if err := logger.Init(logLevel, ""); err != nil {
		return nil, err
	}
	// Flags flow through the same override path as the environment.
	if origin != "" {
		os.Setenv("OQTO_ORIGIN", origin)
	}
	if token != "" {
		os.Setenv("OQTO_TOKEN", token)
	}
	path := cfgPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.LoadOrDefault(path)
}

// dial loads the config, builds the connection and waits for the link.
// The returned closer tears everything down.
func dial() (*mux.Conn, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := mux.Options{
		Origin:               cfg.Server.Origin,
		Token:                cfg.Auth.Token,
		DialTimeout:          config.Duration(cfg.Connection.DialTimeout, 0),
		RequestTimeout:       config.Duration(cfg.Connection.RequestTimeout, 0),
		BackoffBase:          config.Duration(cfg.Connection.BackoffBase, 0),
		BackoffMax:           config.Duration(cfg.Connection.BackoffMax, 0),
		MaxReconnectAttempts: cfg.Connection.MaxReconnects,
	}

	cleanup := func() {}
	if cfg.Auth.TokenFile != "" {
		src, err := auth.NewFileSource(cfg.Auth.TokenFile)
		if err != nil {
			return nil, nil, nil, err
		}
		opts.TokenSource = src
		cleanup = func() { src.Close() }
	}

	conn := mux.New(opts)
	closer := func() {
		conn.Disconnect()
		cleanup()
	}

	conn.Connect()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := conn.WaitConnected(ctx); err != nil {
		closer()
		return nil, nil, nil, fmt.Errorf("connect to %s: %w", cfg.Server.Origin, err)
	}
	return conn, cfg, closer, nil
}

func historyStore(cfg *config.Config) (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	if _, err := config.EnsureConfigDir(); err != nil {
		return "", err
	}
	return config.DefaultHistoryPath()
}
