package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/httpapi"
	"github.com/MimeLyc/subtitle-studio/internal/persistence"
	"github.com/MimeLyc/subtitle-studio/internal/storage"
	"github.com/MimeLyc/subtitle-studio/internal/tasks"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

const shutdownTimeout = 10 * time.Second

// cronStopTimeout bounds the wait for a cleanup run still in progress at shutdown.
var cronStopTimeout = shutdownTimeout

type taskEngine interface {
	Start()
	Stop()
}

type cronEngine interface {
	Start(ctx context.Context) error
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another server already uses %s", cfg.Storage.DataDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("Release lock: %v", err)
		}
	}()

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	uploads, err := storage.NewFolder(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	outputs, err := storage.NewFolder(cfg.Storage.OutputDir)
	if err != nil {
		return err
	}

	settings, err := loadSettingsStore(cfg)
	if err != nil {
		return err
	}

	registry := tasks.NewRegistry(cfg.Tasks.Workers, store)
	janitor := storage.NewJanitor(cfg.Cleanup.Cron, cfg.Cleanup.MaxAge(), uploads, outputs).
		WithTaskPruner(store)
	server := httpapi.NewServer(cfg, registry, uploads, outputs,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithJanitor(janitor),
	)

	return runWithComponents(ctx, cfg, registry, janitor, server)
}

// loadSettingsStore starts from the saved settings file, or from cfg when there is none.
func loadSettingsStore(cfg *config.Config) (*config.RuntimeSettingsStore, error) {
	initial := cfg.RuntimeSettings()
	saved, err := config.LoadRuntimeSettingsFile(cfg.SettingsPath())
	switch {
	case err == nil:
		if verr := saved.Validate(); verr != nil {
			log.Warn("Ignoring invalid settings file %s: %v", cfg.SettingsPath(), verr)
		} else {
			initial = saved
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		log.Warn("Ignoring settings file %s: %v", cfg.SettingsPath(), err)
	}
	return config.NewRuntimeSettingsStore(cfg.SettingsPath(), initial)
}

// runWithComponents runs the server until ctx is cancelled or the listener fails.
func runWithComponents(ctx context.Context, cfg *config.Config, registry taskEngine, janitor cronEngine, httpSrv httpServer) error {
	registry.Start()
	defer registry.Stop()

	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("start cleanup schedule: %w", err)
	}
	defer func() {
		select {
		case <-janitor.Stop().Done():
		case <-time.After(cronStopTimeout):
			log.Warn("Cleanup still running after %s", cronStopTimeout)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		err := httpSrv.ListenAndServe(cfg.HTTP.Addr)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}
