package cli

import (
	"context"
	"fmt"
	"strings"

	coreerrors "lanlink-core/internal/core/errors"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/session"
)

// Session 交互命令操作的会话
type Session interface {
	State() session.State
	Identity() (session.Identity, bool)
	Connect(ctx context.Context, req session.ConnectOptions) error
	Disconnect(ctx context.Context) error
	ClearError()
}

// DiagnoseFunc 执行诊断，onStep 在每个步骤变化时回调
type DiagnoseFunc func(ctx context.Context, onStep func(int, diagnostics.StepResult)) []diagnostics.StepResult

// Defaults connect 省略参数时使用的值
type Defaults struct {
	RoomName     string
	RoomSecret   string
	IsHost       bool
	InstanceName string
}

// Commands 交互命令的解析与执行，与终端无关
type Commands struct {
	ctx      context.Context
	session  Session
	diagnose DiagnoseFunc
	defaults Defaults
	output   *Output
}

// NewCommands 创建命令执行器，diagnose 可为 nil
func NewCommands(ctx context.Context, s Session, diagnose DiagnoseFunc, defaults Defaults, output *Output) *Commands {
	return &Commands{
		ctx:      ctx,
		session:  s,
		diagnose: diagnose,
		defaults: defaults,
		output:   output,
	}
}

// Execute 执行一行命令，返回 false 表示退出
func (c *Commands) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.cmdHelp()
	case "exit", "quit", "q":
		return false
	case "status", "st":
		c.cmdStatus()
	case "peers", "ls":
		c.cmdPeers()
	case "connect", "join":
		c.cmdConnect(args)
	case "disconnect", "leave", "dc":
		c.cmdDisconnect()
	case "clear":
		c.cmdClear()
	case "diagnose", "diag":
		c.cmdDiagnose()
	default:
		c.output.Error("Unknown command: %s", cmd)
		c.output.Info("Type 'help' to see available commands")
	}
	return true
}

func (c *Commands) cmdHelp() {
	c.output.Section("Commands")
	c.output.KeyValue("connect [room] [secret] [--host]", "join a room")
	c.output.KeyValue("disconnect", "leave the room")
	c.output.KeyValue("status", "show session state")
	c.output.KeyValue("peers", "list room members")
	c.output.KeyValue("clear", "clear the last error")
	c.output.KeyValue("diagnose", "run connectivity checks")
	c.output.KeyValue("exit", "quit the shell")
}

func (c *Commands) cmdStatus() {
	c.output.Section("Session")
	c.output.State(c.session.State())
	if id, ok := c.session.Identity(); ok {
		c.output.KeyValue("Room", id.RoomName)
		c.output.KeyValue("Role", id.Role())
		c.output.KeyValue("Hostname", id.Hostname)
		c.output.KeyValue("Instance", id.InstanceName)
	}
}

func (c *Commands) cmdPeers() {
	c.output.Section("Peers")
	c.output.Peers(c.session.State().Peers)
}

// parseConnectArgs connect [room] [secret] [--host|--guest]
func parseConnectArgs(args []string, defaults Defaults) (session.ConnectOptions, error) {
	req := session.ConnectOptions{
		RoomName:     defaults.RoomName,
		RoomSecret:   defaults.RoomSecret,
		IsHost:       defaults.IsHost,
		InstanceName: defaults.InstanceName,
	}

	var positional []string
	for _, a := range args {
		switch a {
		case "--host", "-H":
			req.IsHost = true
		case "--guest", "-G":
			req.IsHost = false
		default:
			if strings.HasPrefix(a, "-") {
				return req, fmt.Errorf("unknown flag: %s", a)
			}
			positional = append(positional, a)
		}
	}

	if len(positional) > 2 {
		return req, fmt.Errorf("too many arguments")
	}
	if len(positional) >= 1 {
		req.RoomName = positional[0]
	}
	if len(positional) == 2 {
		req.RoomSecret = positional[1]
	}
	if req.RoomName == "" {
		return req, fmt.Errorf("room name is required")
	}
	return req, nil
}

func (c *Commands) cmdConnect(args []string) {
	req, err := parseConnectArgs(args, c.defaults)
	if err != nil {
		c.output.Error("%v", err)
		c.output.Plain("  Usage: connect [room] [secret] [--host]")
		return
	}

	role := "guest"
	if req.IsHost {
		role = "host"
	}
	c.output.Info("Joining room %s as %s...", req.RoomName, role)

	if err := c.session.Connect(c.ctx, req); err != nil {
		c.output.Error("Connect failed: %v", err)
		return
	}

	st := c.session.State()
	switch st.Connection {
	case session.StateConnected:
		c.output.Success("Connected to room %s", req.RoomName)
	case session.StateFindingHost:
		c.output.Info("Instance started, waiting for the host to appear")
	default:
		c.output.Plain("  State: %s", StateLabel(st.Connection))
	}
}

func (c *Commands) cmdDisconnect() {
	if err := c.session.Disconnect(c.ctx); err != nil {
		if coreerrors.IsCode(err, coreerrors.CodeStopFailed) {
			c.output.Warning("Disconnected, but the engine reported: %v", err)
			return
		}
		c.output.Error("Disconnect failed: %v", err)
		return
	}
	c.output.Success("Disconnected")
}

func (c *Commands) cmdClear() {
	if c.session.State().Connection != session.StateError {
		c.output.Info("No error to clear")
		return
	}
	c.session.ClearError()
	c.output.Success("Error cleared")
}

func (c *Commands) cmdDiagnose() {
	if c.diagnose == nil {
		c.output.Error("Diagnostics are not available")
		return
	}
	if st := c.session.State().Connection; st != session.StateDisconnected && st != session.StateError {
		c.output.Error("Disconnect before running diagnostics (state %s)", st)
		return
	}

	c.output.Section("Diagnostics")
	results := c.diagnose(c.ctx, func(i int, r diagnostics.StepResult) {
		if r.Status == diagnostics.StatusRunning || r.Status == diagnostics.StatusPending {
			return
		}
		c.output.Plain("  [%d] %-28s %s %s", i+1, r.Name, statusLabel(r.Status), r.Message)
	})

	failed := 0
	for _, r := range results {
		if r.Status == diagnostics.StatusFailed {
			failed++
		}
	}
	if failed == 0 {
		c.output.Success("All checks passed")
	} else {
		c.output.Warning("%d check(s) failed", failed)
	}
}

func statusLabel(s diagnostics.StepStatus) string {
	switch s {
	case diagnostics.StatusSuccess:
		return colorSuccess(string(s))
	case diagnostics.StatusFailed:
		return colorError(string(s))
	case diagnostics.StatusSkipped:
		return colorFaint(string(s))
	default:
		return colorWarning(string(s))
	}
}
