// Package server parses club API server flags and launches the service.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greenroomhq/greenroom/internal/api"
	"github.com/greenroomhq/greenroom/internal/club/auth"
	"github.com/greenroomhq/greenroom/internal/club/cache"
	"github.com/greenroomhq/greenroom/internal/club/scheduler"
	"github.com/greenroomhq/greenroom/internal/club/service"
	"github.com/greenroomhq/greenroom/internal/club/storage/sqlite"
	entrypoint "github.com/greenroomhq/greenroom/internal/platform/cmd"
)

const shutdownTimeout = 10 * time.Second

// Config holds server command configuration.
type Config struct {
	Addr          string        `env:"GREENROOM_HTTP_ADDR" envDefault:":8080"`
	DBPath        string        `env:"GREENROOM_DB_PATH"`
	SweepInterval time.Duration `env:"GREENROOM_SWEEP_INTERVAL" envDefault:"24h"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Interval between retention sweeps")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "greenroom.db")
	}
	return cfg, nil
}

// Run starts the club HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

func serve(ctx context.Context, cfg Config) error {
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	cacheLayer := cache.New(store, nil)
	guard := auth.NewStoreGuard(store, cacheLayer)

	events := service.NewEventService(store, store, cacheLayer, guard)
	registrations := service.NewRegistrationService(store, store, store, cacheLayer, guard)
	users := service.NewUserService(store, store, store, cacheLayer, guard)
	admins := service.NewAdminService(store, store, cacheLayer)
	ensembles := service.NewEnsembleService(store, store, store, cacheLayer, guard)

	cancelSweep, sweepDone := scheduler.StartRetentionSweep(users, cfg.SweepInterval)
	defer func() {
		if cancelSweep != nil {
			cancelSweep()
			<-sweepDone
		}
	}()

	router := api.NewRouter(api.NewHandler(events, registrations, users, admins, ensembles))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("club api listening addr=%s db=%s", cfg.Addr, cfg.DBPath)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return sqlite.Open(path)
}
