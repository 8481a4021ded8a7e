// Package server parses session server flags and starts the process runtime.
package server

import (
	"context"
	"flag"
	"fmt"
	"time"

	appserver "github.com/hearthside/hearthside/internal/app/server"
	entrypoint "github.com/hearthside/hearthside/internal/platform/cmd"
)

// Config holds session server command configuration.
type Config struct {
	Port int    `env:"HEARTHSIDE_PORT" envDefault:"8080"`
	Addr string `env:"HEARTHSIDE_ADDR"`

	SessionHMACKey string `env:"HEARTHSIDE_SESSION_HMAC_KEY"`
	DMPassword     string `env:"HEARTHSIDE_DM_PASSWORD"`

	StorageDriver string `env:"HEARTHSIDE_STORAGE_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"HEARTHSIDE_DB_PATH"`

	OllamaURL   string `env:"HEARTHSIDE_OLLAMA_URL"`
	OllamaModel string `env:"HEARTHSIDE_OLLAMA_MODEL"`

	NarrationTimeout time.Duration `env:"HEARTHSIDE_NARRATION_TIMEOUT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The session server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The session server listen address (overrides -port)")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Persistence backend: sqlite, bbolt or memory")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Persistence file path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the session server.
func Run(ctx context.Context, cfg Config) error {
	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return appserver.Run(ctx, appserver.Config{
			HTTPAddr:         addr,
			SessionHMACKey:   cfg.SessionHMACKey,
			DMPassword:       cfg.DMPassword,
			StorageDriver:    cfg.StorageDriver,
			DBPath:           cfg.DBPath,
			OllamaURL:        cfg.OllamaURL,
			OllamaModel:      cfg.OllamaModel,
			NarrationTimeout: cfg.NarrationTimeout,
		})
	})
}
