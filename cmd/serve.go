package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/smartfill/internal/observability"
	"github.com/xkilldash9x/smartfill/internal/trigger"
)

var errTabClosed = errors.New("browser tab closed")

func newServeCmd() *cobra.Command {
	var listenAddr string

	serveCmd := &cobra.Command{
		Use:   "serve <url|file>",
		Short: "Open a page in Chrome and fill it on demand",
		Long: `Open a page in Chrome and keep it open. Every trigger runs one fill pass:
the floating "Auto-Fill Form" button, POST /api/v1/command and the
/ws/v1/fill WebSocket. Metrics are served on /metrics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.TriggerCfg.ListenAddr = listenAddr
			}
			logger := observability.GetLogger()
			metrics := observability.NewMetrics()

			tab, err := openLive(cmd.Context(), cfg, args[0], logger)
			if err != nil {
				return err
			}
			defer tab.close(logger)

			agent, err := newAgent(cmd.Context(), cfg, tab.doc, metrics, logger)
			if err != nil {
				return err
			}

			server := trigger.NewServer(cfg.Trigger(), agent, metrics, logger)
			g, ctx := errgroup.WithContext(cmd.Context())

			if cfg.Browser().TriggerButton {
				if err := installControl(ctx, tab, server.Dispatcher(), logger); err != nil {
					return err
				}
			}

			g.Go(func() error {
				return server.Start(ctx)
			})
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return nil
				case <-tab.session.Done():
					return errTabClosed
				}
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "Serving triggers on http://%s. Press Ctrl+C to exit.\n", cfg.Trigger().ListenAddr)
			err = g.Wait()
			switch {
			case errors.Is(err, errTabClosed):
				logger.Info("Browser tab closed, stopping.")
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			}
			if err != nil {
				logger.Error("Serve stopped.", zap.Error(err))
			}
			return err
		},
	}

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "trigger API address (overrides trigger.listen_addr)")
	return serveCmd
}
