// Package server initializes and runs the gophadmin HTTP server.
// It connects the backing services, applies database migrations, builds the
// identity and upload services, handles graceful shutdown and serves the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/backend"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/httpapi"
	"github.com/dmitrijs2005/gophadmin/internal/server/identity"
	"github.com/dmitrijs2005/gophadmin/internal/server/metrics"
	"github.com/dmitrijs2005/gophadmin/internal/server/upload"
)

const shutdownTimeout = 10 * time.Second

// Seams for tests.
var (
	connectBackend = backend.Connect
	newManager     = func() identity.Manager { return identity.NewPostgresManager() }
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	conn     backend.Connection
	metrics  *metrics.Metrics
	handler  http.Handler
	listenFn func(srv *http.Server) error
}

// NewApp connects the backend and builds everything the HTTP server needs.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	conn, err := connectBackend(ctx, c, backend.Options{Verbose: c.Verbose, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	m := newManager()
	if err := m.RunMigrations(ctx, conn.DB()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	mx := metrics.New()
	uploadLogger := logger.With("module", "upload")

	us := upload.NewService(conn.Store(), logger,
		upload.WithRecorder(mx),
		upload.WithProgress(func(key string, written, total int64) {
			uploadLogger.Debug(ctx, "upload progress", "key", key, "written", written, "total", total)
		}),
	)
	is := identity.NewService(conn.DB(), m, c, logger)

	deps := httpapi.Deps{
		Config:     c,
		Logger:     logger,
		Verifier:   conn.Verifier(),
		Identities: is,
		Uploads:    us,
		Dispatcher: conn.Dispatcher(),
		Metrics:    mx,
	}
	if bus := conn.Bus(); bus != nil {
		deps.Events = bus
	}

	return &App{
		config:   c,
		logger:   logger,
		conn:     conn,
		metrics:  mx,
		handler:  httpapi.NewRouter(deps),
		listenFn: func(srv *http.Server) error { return srv.ListenAndServe() },
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// initNotifications makes sure push delivery is usable before requests are
// accepted and reports which delivery path is active.
func (app *App) initNotifications(ctx context.Context) error {
	if app.conn.Dispatcher() == nil {
		return errors.New("push dispatcher is not configured")
	}
	mode := "bus"
	if app.config.Firebase.Enabled() {
		mode = "fcm"
	}
	app.logger.Info(ctx, "notification service initialized", "delivery", mode, "channel", app.config.PushChannel)
	return nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := app.listenFn(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}

	// in-flight requests drain before the backend is closed
	<-stopped
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.initNotifications(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.conn.Close(); err != nil {
		app.logger.Error(context.Background(), "close backend", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
	return nil
}
