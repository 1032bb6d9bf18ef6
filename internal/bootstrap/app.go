package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/health"
	"github.com/wildfireranch/commandcenter/internal/infra/config"
	"github.com/wildfireranch/commandcenter/internal/infra/pollers"
)

// App encapsulates the full process lifecycle: the HTTP server plus
// the background poller and health-monitor loops, per SPEC_FULL.md's
// "single-threaded cooperative scheduling with one task per background
// loop" redesign flag — each loop is its own goroutine started here,
// sharing state only through the DB and cache, never through direct
// calls into each other.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	pollers []*pollers.Poller
	health  *health.Monitor
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, pollerSet []*pollers.Poller, monitor *health.Monitor) *App {
	return &App{
		cfg: cfg, logger: logger.With("component", "bootstrap"),
		server: server, pollers: pollerSet, health: monitor,
	}
}

// Run starts the HTTP server and background loops, and blocks until
// shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, p := range a.pollers {
		p.Start(ctx)
	}
	a.health.Start()

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		for _, p := range a.pollers {
			p.Stop()
		}
		a.health.Stop()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
