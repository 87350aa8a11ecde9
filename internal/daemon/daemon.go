package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"fapiao/internal/api"
	"fapiao/internal/config"
	"fapiao/internal/logging"
	"fapiao/internal/taskstore"
)

// Daemon owns the HTTP API lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	baseLogger *slog.Logger
	store      *taskstore.Store
	service    *api.TaskService
	server     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. cfgPath is where
// runtime settings updates are persisted; it may be empty.
func New(cfg *config.Config, cfgPath string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store := taskstore.New()
	service := api.NewTaskService(store, cfg, cfgPath, logger)
	lockPath := filepath.Join(cfg.Paths.LogDir, "fapiaod.lock")

	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		baseLogger: logger,
		store:      store,
		service:    service,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Service exposes the task service, mainly for tests.
func (d *Daemon) Service() *api.TaskService {
	return d.service
}

// Addr returns the bound API address once the daemon has started.
func (d *Daemon) Addr() string {
	if d.server == nil {
		return ""
	}
	return d.server.addr()
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fapiao daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	// http.Server cannot serve again after Shutdown, so build a fresh one
	// on every start.
	d.server = newAPIServer(d.cfg, d.service, d.baseLogger)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("fapiao daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("fapiao daemon stopped")
}

// Run starts the daemon and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}
