package cmd

import (
	"context"

	"lanlink-core/internal/cli"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/session"

	"github.com/spf13/cobra"
)

var shellAPI bool

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell",
	Long: `Start an interactive shell with history and Tab completion. The shell
drives the same session as 'connect' and can run diagnostics between
sessions. Background state changes are printed as they happen.

Example:
  lanlink shell
  lanlink shell --api      # also serve the local control API`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().BoolVar(&shellAPI, "api", false, "Also serve the local control API")
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := setup()
	if err != nil {
		return err
	}
	cfg.API.Enabled = shellAPI

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if srv := a.API(); srv != nil {
		if err := srv.Start(); err != nil {
			return err
		}
	}

	room := a.ConnectOptions()
	sh, err := cli.NewShell(ctx, cli.ShellConfig{
		Session: &appSession{Manager: a.Session(), connect: a.Connect},
		Diagnose: func(ctx context.Context, onStep func(int, diagnostics.StepResult)) []diagnostics.StepResult {
			results, err := a.Diagnose(ctx, onStep)
			if err != nil {
				return nil
			}
			return results
		},
		Defaults: cli.Defaults{
			RoomName:     room.RoomName,
			RoomSecret:   room.RoomSecret,
			IsHost:       room.IsHost,
			InstanceName: room.InstanceName,
		},
		Watch:   a.Session().Subscribe(ctx),
		NoColor: noColor,
	})
	if err != nil {
		return err
	}
	sh.Run()
	return nil
}

// appSession 连接时先经运行时准备网卡
type appSession struct {
	*session.Manager
	connect func(ctx context.Context, req session.ConnectOptions) error
}

func (s *appSession) Connect(ctx context.Context, req session.ConnectOptions) error {
	return s.connect(ctx, req)
}
