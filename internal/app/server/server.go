// Package server hosts the session HTTP/WebSocket process: campaign state,
// combat, narration and persistence behind one listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hearthside/hearthside/internal/game/state"
	"github.com/hearthside/hearthside/internal/gateway"
	"github.com/hearthside/hearthside/internal/narrator"
	"github.com/hearthside/hearthside/internal/narrator/ollama"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
	"github.com/hearthside/hearthside/internal/platform/timeouts"
	"github.com/hearthside/hearthside/internal/session"
	"github.com/hearthside/hearthside/internal/storage"
	"github.com/hearthside/hearthside/internal/storage/bbolt"
	"github.com/hearthside/hearthside/internal/storage/sqlite"
)

// Config defines the inputs for the session server process.
type Config struct {
	HTTPAddr string

	// SessionHMACKey is the hex-encoded token signing key.
	SessionHMACKey string

	// DMPassword gates DM seats and campaign creation. Empty disables both.
	DMPassword string

	// StorageDriver selects the persistence backend: "sqlite", "bbolt" or
	// "memory".
	StorageDriver string
	DBPath        string

	// OllamaURL enables LLM narration when set. An unreachable endpoint
	// degrades to canned failure notices instead of blocking startup.
	OllamaURL   string
	OllamaModel string

	NarrationTimeout  time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server owns the HTTP listener and the storage handle behind it.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	registry        *state.Registry
	store           storage.Store
}

// NewServer builds a configured session server.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	store, err := openStorage(config)
	if err != nil {
		return nil, err
	}

	registry := state.NewRegistry(store, nil, nil)
	sessions, err := session.NewRegistry(config.SessionHMACKey, registry, nil)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	gw := gateway.New(gateway.Config{
		Sessions:         sessions,
		Registry:         registry,
		Generator:        buildGenerator(ctx, config),
		DMPassword:       config.DMPassword,
		NarrationTimeout: config.NarrationTimeout,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		registry:        registry,
		store:           store,
	}, nil
}

// openStorage selects the persistence backend. A nil store means
// memory-only operation: campaigns last until the process exits.
func openStorage(config Config) (storage.Store, error) {
	driver := strings.TrimSpace(strings.ToLower(config.StorageDriver))
	switch driver {
	case "", "sqlite":
		path := config.DBPath
		if path == "" {
			path = "hearthside.db"
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	case "bbolt":
		path := config.DBPath
		if path == "" {
			path = "hearthside.bolt"
		}
		store, err := bbolt.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bbolt storage: %w", err)
		}
		return store, nil
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.StorageDriver)
	}
}

func buildGenerator(ctx context.Context, config Config) narrator.Generator {
	url := strings.TrimSpace(config.OllamaURL)
	if url == "" {
		log.Printf("narration disabled, no ollama url configured")
		return narrator.GeneratorFunc(func(context.Context, narrator.Request) (string, error) {
			return "", apperrors.New(apperrors.CodeGeneratorFailure, "no narration backend configured")
		})
	}
	opts := []ollama.Option{}
	if config.OllamaModel != "" {
		opts = append(opts, ollama.WithModel(config.OllamaModel))
	}
	client := ollama.New(url, opts...)
	if !client.Available(ctx) {
		log.Printf("ollama unreachable at startup url=%s", url)
	}
	return client
}

// Run creates and serves a session server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(ctx, config)
	if err != nil {
		return fmt.Errorf("init session server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve session: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends, saving every
// live campaign before shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("session server is nil")
	}

	serveErr := make(chan error, 1)
	log.Printf("session server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.registry.SaveAll(shutdownCtx); err != nil {
			log.Printf("save campaigns on shutdown: %v", err)
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close storage: %v", err)
	}
}
