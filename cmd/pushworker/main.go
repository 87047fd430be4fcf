// Command pushworker is the background notification handler. It consumes
// push and click events from the Redis bus, turns them into display commands
// and publishes those back, keeping its own notification tray.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/backend"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/metrics"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"golang.org/x/sync/errgroup"
)

func main() {

	cfg := config.MustLoad()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("module", "pushworker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	bus, closeBus, err := backend.ConnectBus(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer closeBus()

	mx := metrics.New()
	tray := push.NewTray()
	worker := push.NewWorker(push.NewHandler(cfg.AppURL), push.MultiSink{tray, bus}, logger, mx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(ctx, bus)
		if err == nil && ctx.Err() == nil {
			err = errors.New("event stream closed")
		}
		return err
	})

	if cfg.WorkerMetricsAddr != "" {
		srv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mx.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(context.Background(), "push worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "push worker stopped", "visible", len(tray.Visible()))
}
