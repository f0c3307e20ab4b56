package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"lanlink-core/internal/cli"
	coreerrors "lanlink-core/internal/core/errors"
	"lanlink-core/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	connectHost       bool
	connectSecret     string
	connectInstance   string
	connectFullTunnel bool
)

var connectCmd = &cobra.Command{
	Use:   "connect [room]",
	Short: "Join a room and stay connected until interrupted",
	Long: `Join a room in the foreground. State changes and the member list are
printed as they happen. Press Ctrl+C to leave the room.

The room name and secret default to the values in the config file. When
no secret is configured it is read from the terminal without echo.

Example:
  lanlink connect my-room --host
  lanlink connect my-room --secret hunter2
  lanlink connect --full-tunnel`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().BoolVarP(&connectHost, "host", "H", false, "Host the room (fixed address 10.126.126.1)")
	connectCmd.Flags().StringVarP(&connectSecret, "secret", "s", "", "Room secret")
	connectCmd.Flags().StringVar(&connectInstance, "instance", "", "Overlay instance name")
	connectCmd.Flags().BoolVar(&connectFullTunnel, "full-tunnel", false, "Route room traffic through a local TUN device")
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := setup()
	if err != nil {
		return err
	}
	cfg.API.Enabled = false
	if connectFullTunnel {
		cfg.Overlay.FullTunnel = true
	}

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := a.ConnectOptions()
	if len(args) == 1 {
		req.RoomName = args[0]
	}
	if cmd.Flags().Changed("host") {
		req.IsHost = connectHost
	}
	if connectSecret != "" {
		req.RoomSecret = connectSecret
	}
	if connectInstance != "" {
		req.InstanceName = connectInstance
	}
	if req.RoomName == "" {
		return fmt.Errorf("room name is required (argument or room.name in config)")
	}
	if req.RoomSecret == "" {
		secret, err := promptSecret(cmd)
		if err != nil {
			return err
		}
		req.RoomSecret = secret
	}

	out := newOutput(cmd)
	out.Info("Joining room %s as %s...", req.RoomName, roleName(req.IsHost))

	if err := a.Connect(ctx, req); err != nil {
		return err
	}

	final := watchSession(ctx, a.Session(), out)

	out.Info("Leaving room...")
	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer leaveCancel()
	if err := a.Session().Disconnect(leaveCtx); err != nil {
		if coreerrors.IsCode(err, coreerrors.CodeStopFailed) {
			out.Warning("Engine did not stop cleanly: %v", err)
		} else {
			return err
		}
	}
	if final.Connection == session.StateError {
		return fmt.Errorf("session failed: %s", final.ErrorMessage)
	}
	out.Success("Disconnected")
	return nil
}

// watchSession 打印状态变化直到 ctx 取消或会话离开活动状态，返回最后的状态
func watchSession(ctx context.Context, s *session.Manager, out *cli.Output) session.State {
	var last session.State
	first := true
	for st := range s.Subscribe(ctx) {
		if !first && st.Equal(last) {
			continue
		}
		changed := first || st.Connection != last.Connection
		first = false
		last = st

		if changed {
			switch st.Connection {
			case session.StateConnected:
				out.Success("Connected, virtual address %s", orDash(st.VirtualAddress))
			case session.StateFindingHost:
				out.Info("Waiting for the host to appear...")
			case session.StateError:
				out.Error("Session failed: %s", st.ErrorMessage)
			case session.StateDisconnected:
				out.Info("Disconnected")
			default:
				out.Info("State: %s", cli.StateLabel(st.Connection))
			}
		}
		if st.Connection == session.StateConnected || st.Connection == session.StateFindingHost {
			out.Peers(st.Peers)
		}
		if st.Connection == session.StateError || st.Connection == session.StateDisconnected {
			return last
		}
	}
	return last
}

// promptSecret 从终端读取房间密码，非终端时返回空密码
func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Room secret: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func roleName(isHost bool) string {
	if isHost {
		return "host"
	}
	return "guest"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
