package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/nws-weather/internal/api/http"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve current weather over HTTP",
		Long: `serve exposes GET /api/v1/weather/current?zip=|lat=&lon= along with /health
and /metrics. Every request resolves and fetches fresh data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.configPath, root.debug, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return serve(cmd.Context(), a)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")

	return cmd
}

// serve blocks until ctx is cancelled, then shuts the server down.
func serve(ctx context.Context, a *app) error {
	server := httpapi.NewServer(a.resolver, a.service, a.logger, nil)
	addr := a.cfg.GetServerAddr()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", addr)
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("error during shutdown", "error", err)
		return err
	}
	return nil
}
