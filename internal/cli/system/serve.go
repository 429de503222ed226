package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/logger"
)

type ServeCmd struct {
	Listen          string        `help:"Address to listen on. Defaults to the config file value."`
	ShutdownTimeout time.Duration `help:"How long to wait for in-flight requests on shutdown." default:"10s"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	addr := c.Listen
	if addr == "" && ctx.Config != nil {
		addr = ctx.Config.Listen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.serve(sigCtx, ctx, ln)
}

// serve runs the API on ln until runCtx is cancelled, then drains open
// requests for at most ShutdownTimeout.
func (c *ServeCmd) serve(runCtx context.Context, ctx *cli.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      api.NewRouter(ctx.Service, ctx.Today),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(ctx.Stdout(), "Serving habitual API on http://%s\n", ln.Addr())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	timeout := c.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	fmt.Fprintln(ctx.Stdout(), "Server stopped.")
	return nil
}
