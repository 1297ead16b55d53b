package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/calendar-slots/internal/application"
	"github.com/example/calendar-slots/internal/config"
	httptransport "github.com/example/calendar-slots/internal/http"
	"github.com/example/calendar-slots/internal/logging"
	"github.com/example/calendar-slots/internal/metrics"
	"github.com/example/calendar-slots/internal/notification"
	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/persistence/memory"
	"github.com/example/calendar-slots/internal/persistence/sqlite"
	"github.com/example/calendar-slots/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(logging.NewHandler(os.Stdout, cfg.LogFormat, cfg.Level))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("calendar service stopped with error", "error", err)
		os.Exit(1)
	}
}

// storage is the store plus the lifecycle methods both drivers provide.
type storage interface {
	persistence.Store
	Ping(ctx context.Context) error
	Close() error
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage)
	}
}

func newNotifier(cfg config.Config, logger *slog.Logger) notification.Notifier {
	if !cfg.SMTP.Enabled() {
		return notification.NewLogNotifier(logger)
	}
	return notification.NewSMTPNotifier(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

// app holds the wired components of one service instance.
type app struct {
	store      storage
	dispatcher *notification.Dispatcher
	runner     *scheduler.Runner
	handler    http.Handler
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (*app, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	collectors := metrics.New()
	dispatcher := notification.NewDispatcher(newNotifier(cfg, logger), notification.DispatcherConfig{
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueue,
	}, logger, collectors)

	events := application.NewEventServiceWithLogger(store, dispatcher, uuid.NewString, now, logger).
		WithObserver(collectors)
	reminders := application.NewReminderServiceWithLogger(store, dispatcher, cfg.Location, logger).
		WithObserver(collectors)

	runner, err := scheduler.NewRunner(reminders, scheduler.Config{
		DaySchedule:  cfg.DayReminderCron,
		TimeSchedule: cfg.TimeReminderCron,
		Location:     cfg.Location,
		JobTimeout:   scheduler.DefaultConfig().JobTimeout,
	}, now, logger)
	if err != nil {
		_ = dispatcher.Close(ctx)
		_ = store.Close()
		return nil, err
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Events:     httptransport.NewEventHandler(events, logger),
		Slots:      httptransport.NewSlotHandler(events, logger),
		Metrics:    collectors.Handler(),
		Health:     store,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return &app{store: store, dispatcher: dispatcher, runner: runner, handler: handler}, nil
}

// shutdown stops the sweeps and drains queued notifications before closing
// storage.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.runner.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.dispatcher.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := build(ctx, cfg, logger, time.Now)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.runner.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("calendar API listening", "addr", server.Addr, "storage", cfg.Storage, "timezone", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = fmt.Errorf("server encountered error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
	}
	if err := a.shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop background work", "error", err)
	}
	logger.Info("calendar service stopped")
	return runErr
}
