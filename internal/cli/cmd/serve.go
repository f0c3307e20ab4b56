package cmd

import (
	"context"

	corelog "lanlink-core/internal/core/log"

	"github.com/spf13/cobra"
)

var (
	serveListen     string
	serveMetrics    string
	serveAutoJoin   bool
	serveFullTunnel bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session manager with the local control API",
	Long: `Run in daemon mode. The session is controlled through the local HTTP API
(GET /api/v1/session, POST /api/v1/session/connect, ...) and state changes
are streamed over a websocket at /api/v1/session/stream.

Example:
  lanlink serve
  lanlink serve --listen 127.0.0.1:7380 --metrics prometheus
  lanlink serve --auto-join         # join room.name from the config at startup`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "API listen address")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics", "", "Metrics backend: memory/prometheus")
	serveCmd.Flags().BoolVar(&serveAutoJoin, "auto-join", false, "Join the configured room at startup")
	serveCmd.Flags().BoolVar(&serveFullTunnel, "full-tunnel", false, "Route room traffic through a local TUN device")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := setup()
	if err != nil {
		return err
	}
	cfg.API.Enabled = true
	if serveListen != "" {
		cfg.API.Listen = serveListen
	}
	if serveMetrics != "" {
		cfg.API.Metrics = serveMetrics
	}
	if serveFullTunnel {
		cfg.Overlay.FullTunnel = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		return err
	}

	logger := corelog.Component("serve")
	logger.Infof("LanLink daemon starting: %s", a)

	if serveAutoJoin {
		req := a.ConnectOptions()
		if req.RoomName == "" {
			logger.Warnf("auto-join requested but room.name is not configured")
		} else if err := a.Connect(ctx, req); err != nil {
			logger.Errorf("auto-join room %s failed: %v", req.RoomName, err)
		}
	}

	err = a.Run(ctx)
	logger.Infof("LanLink daemon stopped")
	return err
}
