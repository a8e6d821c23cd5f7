package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"git.home.luguber.info/inful/nbtoc/internal/config"
	"git.home.luguber.info/inful/nbtoc/internal/history"
	"git.home.luguber.info/inful/nbtoc/internal/logfields"
	"git.home.luguber.info/inful/nbtoc/internal/metrics"
	"git.home.luguber.info/inful/nbtoc/internal/natspub"
	"git.home.luguber.info/inful/nbtoc/internal/refresh"
	"git.home.luguber.info/inful/nbtoc/internal/server"
)

const shutdownTimeout = 10 * time.Second

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	DocumentFlags
	Interval time.Duration `help:"Refresh interval (overrides config)"`
	NoWatch  bool          `name:"no-watch" help:"Disable file change triggers"`
	Serve    bool          `help:"Enable the HTTP server (overrides config)"`
	Addr     string        `help:"HTTP listen address (overrides config)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, w.DocumentFlags, config.Validate)
	if err != nil {
		return err
	}
	w.applyOverrides(cfg)
	logger := newLogger(cfg, root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := startServices(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Watching document",
		logfields.Path(cfg.Document.Path),
		slog.Duration("interval", svc.refresher.Interval()))

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return svc.shutdown(shutdownCtx)
}

func (w *WatchCmd) applyOverrides(cfg *config.Config) {
	if w.Interval > 0 {
		cfg.Refresh.Interval = w.Interval
	}
	if w.NoWatch {
		cfg.Refresh.Watch = false
	}
	if w.Serve {
		cfg.Server.Enabled = true
	}
	if w.Addr != "" {
		cfg.Server.Addr = w.Addr
	}
}

// services holds everything started by watch, in start order.
type services struct {
	refresher *refresh.Refresher
	watcher   *refresh.Watcher
	server    *server.Server
	store     *history.Store
	publisher *natspub.Publisher
}

// startServices wires the refresher with its optional collaborators. On
// error, whatever was already started is shut down.
func startServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (svc *services, err error) {
	svc = &services{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, svc.shutdown(context.Background()))
			svc = nil
		}
	}()

	src, ctr, err := openDocument(cfg)
	if err != nil {
		return svc, err
	}
	opts, err := refreshOptions(cfg)
	if err != nil {
		return svc, err
	}
	r, err := newRefresher(cfg, src, ctr, opts, logger)
	if err != nil {
		return svc, err
	}

	var observers []refresh.Observer

	var registry *prom.Registry
	if cfg.Server.Enabled && cfg.Server.Metrics {
		registry = prom.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		r.WithRecorder(metrics.NewPrometheusRecorder(registry))
	}

	if cfg.History.Enabled {
		if cfg.History.Path != ":memory:" {
			if mkErr := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o750); mkErr != nil {
				return svc, fmt.Errorf("create history directory: %w", mkErr)
			}
		}
		svc.store, err = history.Open(cfg.History.Path, cfg.History.Retain)
		if err != nil {
			return svc, err
		}
		r.WithHistory(svc.store)
	}

	if cfg.NATS.Enabled {
		svc.publisher, err = natspub.Connect(ctx, natspub.Config{
			URL:      cfg.NATS.URL,
			Subject:  cfg.NATS.Subject,
			Stream:   cfg.NATS.Stream,
			KVBucket: cfg.NATS.KVBucket,
			Timeout:  cfg.NATS.Timeout,
		}, cfg.Document.Path)
		if err != nil {
			return svc, err
		}
		observers = append(observers, svc.publisher.WithLogger(logger))
	}

	if cfg.Server.Enabled {
		hub := server.NewHub()
		observers = append(observers, hub)
		srvOpts := server.Options{
			Addr:     cfg.Server.Addr,
			Registry: registry,
			Hub:      hub,
			Logger:   logger,
		}
		if svc.store != nil {
			srvOpts.History = svc.store
		}
		svc.server = server.New(r, srvOpts)
		if err = svc.server.Start(ctx); err != nil {
			return svc, err
		}
	}

	r.WithObservers(observers...)
	if err = r.Start(ctx); err != nil {
		return svc, err
	}
	svc.refresher = r

	if cfg.Refresh.Watch {
		svc.watcher, err = refresh.NewWatcher(watchPaths(cfg), cfg.Refresh.Debounce, func() {
			if runErr := r.RunNow(refresh.TriggerWatch); runErr != nil {
				logger.Warn("Early refresh failed", logfields.Error(runErr))
			}
		})
		if err != nil {
			return svc, err
		}
		svc.watcher.WithLogger(logger)
		if err = svc.watcher.Start(ctx); err != nil {
			return svc, err
		}
	}

	return svc, nil
}

// shutdown stops services in reverse start order and combines their errors.
func (s *services) shutdown(ctx context.Context) error {
	var err error
	if s.watcher != nil {
		err = multierr.Append(err, s.watcher.Stop())
	}
	if s.refresher != nil {
		err = multierr.Append(err, s.refresher.Stop())
	}
	if s.server != nil {
		err = multierr.Append(err, s.server.Stop(ctx))
	}
	if s.publisher != nil {
		err = multierr.Append(err, s.publisher.Close())
	}
	if s.store != nil {
		err = multierr.Append(err, s.store.Close())
	}
	return err
}
