package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rushteam/unitrec/pkg/logging"
	"github.com/rushteam/unitrec/server"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP recommendation server",
		Long: `Start the HTTP server.

Examples:
  unitrec serve
  unitrec serve --addr :9000 -c unitrec.yaml
  UNITREC_STORE_DRIVER=sqlite unitrec serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			settings, rec, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := rec.Close(); err != nil {
					logging.Warn().Err(err).Msg("close store")
				}
			}()
			if addr != "" {
				settings.Server.Addr = addr
			}

			srv := &http.Server{
				Addr:         settings.Server.Addr,
				Handler:      server.New(rec).Router(),
				ReadTimeout:  settings.Server.ReadTimeout,
				WriteTimeout: settings.Server.WriteTimeout,
			}
			errCh := make(chan error, 1)
			go func() {
				logging.Info().Str("addr", srv.Addr).Msg("http server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logging.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
