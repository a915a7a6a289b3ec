package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/librecur/internal/config"
	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server"
	authmemory "github.com/cyp0633/librecur/server/auth/memory"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/cyp0633/librecur/server/storage/memory"
	"github.com/cyp0633/librecur/server/storage/sqlite"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	listen     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the schedule API server",
		Long: `Run the schedule API server.

Configuration is read from --config (YAML), then .env, then RECUR_*
environment variables. --listen overrides everything else.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, opts, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", os.Getenv("RECUR_CONFIG"), "path to the YAML config file")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address, e.g. :8080")
	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts *serveOptions, logOut io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}
	if rootOpts.Verbose {
		cfg.Log.Level = "debug"
	}
	if rootOpts.Format == "json" {
		cfg.Log.Format = "json"
	}

	logger, err := cfg.Log.NewLogger(logOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log configuration", err)
	}

	svc, err := newService(cfg, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start", err)
	}
	defer svc.Close()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to listen", err)
	}

	httpServer := &http.Server{
		Handler:           svc.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, httpServer, ln, cfg.ShutdownTimeout, logger)
}

// serve runs srv on ln until ctx is done, then waits up to timeout for
// in-flight requests.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "server failed", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down, waiting for pending requests", "timeout", timeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "server forced to shut down", err)
	}
	logger.Info("server stopped")
	return nil
}

// service is the wired server with the resources it owns.
type service struct {
	handler http.Handler
	store   storage.Storage
	engine  *recurrence.Engine
	closers []func() error
}

func newService(cfg *config.Config, logger *slog.Logger) (*service, error) {
	svc := &service{}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.Path, sqlite.WithLogger(logger.With("component", "storage")))
		if err != nil {
			return nil, err
		}
		svc.store = store
		svc.closers = append(svc.closers, store.Close)
	default:
		svc.store = memory.New(memory.WithLogger(logger.With("component", "storage")))
	}

	engineConfig := cfg.EngineConfig()
	svc.engine = recurrence.NewEngineWithConfig(engineConfig)
	svc.closers = append(svc.closers, func() error {
		svc.engine.Close()
		return nil
	})

	opts := []server.Option{
		server.WithLogger(logger.With("component", "server")),
		server.WithEngine(svc.engine),
	}

	if len(cfg.Auth.Users) > 0 {
		users := authmemory.New(authmemory.WithLogger(logger.With("component", "auth")))
		for _, u := range cfg.Auth.Users {
			if err := users.AddUser(u.Name, u.Password, u.ReadOnly); err != nil {
				svc.Close()
				return nil, err
			}
			for _, token := range u.Tokens {
				if err := users.AddToken(token, u.Name); err != nil {
					svc.Close()
					return nil, fmt.Errorf("user %s: %w", u.Name, err)
				}
			}
		}
		opts = append(opts, server.WithAuthenticator(users, cfg.Auth.Realm))
	} else {
		logger.Warn("no users configured, authentication disabled")
	}

	if len(cfg.CORS.Origins) > 0 {
		opts = append(opts, server.WithCORS(cfg.CORS.Origins...))
	}

	srv, err := server.New(svc.store, opts...)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.handler = srv

	logger.Info("service configured",
		"storage", cfg.Storage.Driver,
		"cache", engineConfig.CacheEnabled,
		"horizon_days", engineConfig.HorizonDays,
		"auth", len(cfg.Auth.Users) > 0)
	return svc, nil
}

// Close releases the store and engine in reverse order of creation.
func (s *service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
