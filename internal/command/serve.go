package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/metrics"
	"github.com/bizportal/portalchat/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local database over the chat API",
		Long: `Serve a local database over the HTTP API the client speaks, so other
portalchat instances can point api.base_url at it. Requests authenticate
with "Authorization: Bearer <user id>". Meant for demos and testing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			// Serving never goes through the remote client.
			if local, _ := cmd.Flags().GetString("local"); local == "" {
				path := cfg.Local.DBPath
				if path == "" {
					path = core.DefaultDBPath()
				}
				_ = cmd.Flags().Set("local", path)
			}
			if as, _ := cmd.Flags().GetString("as"); as == "" && cfg.User.ID == "" {
				_ = cmd.Flags().Set("as", "server")
			}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			ctx.Log.SetQuiet(false, ctx.Config.Log.Mode)

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = ctx.Config.Server.Addr
			}
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if metricsAddr == "" {
				metricsAddr = ctx.Config.Metrics.Addr
			}

			m := metrics.New()
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srvMetrics := m
			if metricsAddr != "" {
				srvMetrics = nil
			}
			srv := server.New(ctx.DB, ctx.Log, srvMetrics)

			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error { return srv.Run(gctx, addr) })
			if metricsAddr != "" {
				g.Go(func() error { return serveMetrics(gctx, metricsAddr, m.Handler()) })
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", ctx.DBPath, addr)
			if err := g.Wait(); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address (default server.addr)")
	cmd.Flags().String("metrics-addr", "", "serve /metrics on a separate address")
	return cmd
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
