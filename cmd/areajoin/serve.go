package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/areajoin/internal/web"
)

// createServeCmd creates the HTTP API server command
func createServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the join API over HTTP",
		Long:  `Expose POST /api/join, POST /api/export, GET /api/score, GET /api/health and GET /metrics`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, map[string]string{
				"workers":     "workers",
				"web.api_key": "api-key",
			}); err != nil {
				return err
			}
			defer a.logger.Sync()

			webCfg := web.FromConfig(a.cfg)
			if addr != "" {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return fmt.Errorf("invalid --addr %q: %w", addr, err)
				}
				webCfg.Server.Host = host
				if webCfg.Server.Port, err = strconv.Atoi(port); err != nil {
					return fmt.Errorf("invalid --addr port %q: %w", port, err)
				}
			}

			server, err := web.NewServer(webCfg, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. :8080 (overrides web.host and web.port)")
	cmd.Flags().Int("workers", 0, "Matching goroutines per request (0 = one per CPU)")
	cmd.Flags().String("api-key", "", "Require this X-API-Key on /api routes")

	return cmd
}
