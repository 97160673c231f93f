package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantkit/internal/metrics"
	"quantkit/internal/server"
	"quantkit/internal/service"
	"quantkit/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		port      int
		noStorage bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API with health and Prometheus endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				opts.settings.ListenPort = port
			}

			reg := newRegistry()
			svcOpts := []service.Option{
				service.WithMetrics(metrics.NewWithRegistry(reg)),
				service.WithDefaults(service.Defaults{Method: opts.settings.Method, Beta: opts.settings.Beta}),
			}
			if !noStorage {
				if store := initializeStorage(opts.settings.DataPath); store != nil {
					defer store.Close()
					svcOpts = append(svcOpts, service.WithStore(store))
				}
			}

			srv := server.New(service.New(opts.newSampler(), svcOpts...), opts.settings.ListenPort, reg)
			return run(cmd.Context(), srv)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	cmd.Flags().BoolVar(&noStorage, "no-storage", false, "Do not persist named results")
	return cmd
}

// newRegistry returns a registry that also exports Go runtime and process
// metrics.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// initializeStorage opens the store, or returns nil so the server keeps
// running without persistence.
func initializeStorage(dataPath string) *storage.Store {
	store, err := openStore(dataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

// run serves until ctx is done or a shutdown signal arrives.
func run(ctx context.Context, srv *server.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
