package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	corelog "lanlink-core/internal/core/log"
	"lanlink-core/internal/diagnostics"
	"lanlink-core/internal/engine/enginetest"
	"lanlink-core/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommands(t *testing.T, diagnose DiagnoseFunc) (*Commands, *session.Manager, *enginetest.Engine, *bytes.Buffer) {
	t.Helper()
	eng := enginetest.New()
	mgr := session.NewManager(context.Background(), eng,
		session.WithLogger(corelog.NewNopLogger()),
		session.WithMonitorInterval(time.Hour))
	t.Cleanup(func() { _ = mgr.Close() })

	var buf bytes.Buffer
	cmds := NewCommands(context.Background(), mgr, diagnose,
		Defaults{InstanceName: "lanlink"}, NewOutputTo(&buf, true))
	return cmds, mgr, eng, &buf
}

func TestParseConnectArgs(t *testing.T) {
	defaults := Defaults{RoomName: "saved", RoomSecret: "pw", InstanceName: "lanlink"}

	tests := []struct {
		name    string
		args    []string
		room    string
		secret  string
		isHost  bool
		wantErr bool
	}{
		{name: "defaults", args: nil, room: "saved", secret: "pw"},
		{name: "room only", args: []string{"lan-party"}, room: "lan-party", secret: "pw"},
		{name: "room and secret", args: []string{"lan-party", "s3cret"}, room: "lan-party", secret: "s3cret"},
		{name: "host flag", args: []string{"--host", "lan-party"}, room: "lan-party", secret: "pw", isHost: true},
		{name: "short host flag", args: []string{"lan-party", "-H"}, room: "lan-party", secret: "pw", isHost: true},
		{name: "unknown flag", args: []string{"--udp"}, wantErr: true},
		{name: "too many", args: []string{"a", "b", "c"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseConnectArgs(tt.args, defaults)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.room, req.RoomName)
			assert.Equal(t, tt.secret, req.RoomSecret)
			assert.Equal(t, tt.isHost, req.IsHost)
			assert.Equal(t, "lanlink", req.InstanceName)
		})
	}
}

func TestParseConnectArgs_RequiresRoom(t *testing.T) {
	_, err := parseConnectArgs([]string{"--host"}, Defaults{})
	assert.Error(t, err)
}

func TestCommands_ConnectStatusDisconnect(t *testing.T) {
	cmds, mgr, eng, buf := newTestCommands(t, nil)

	assert.True(t, cmds.Execute("connect lan-party pw --host"))
	assert.Equal(t, session.StateConnected, mgr.State().Connection)
	assert.Contains(t, buf.String(), "Connected to room lan-party")
	assert.Equal(t, 1, eng.CallCount(enginetest.CallRun))

	buf.Reset()
	cmds.Execute("status")
	out := buf.String()
	assert.Contains(t, out, "CONNECTED")
	assert.Contains(t, out, "lan-party")
	assert.Contains(t, out, "host")

	buf.Reset()
	cmds.Execute("disconnect")
	assert.Contains(t, buf.String(), "Disconnected")
	assert.Equal(t, session.StateDisconnected, mgr.State().Connection)
}

func TestCommands_GuestWaitsForHost(t *testing.T) {
	cmds, mgr, _, buf := newTestCommands(t, nil)

	cmds.Execute("join lan-party pw")
	assert.Equal(t, session.StateFindingHost, mgr.State().Connection)
	assert.Contains(t, buf.String(), "waiting for the host")
}

func TestCommands_ConnectFailureAndClear(t *testing.T) {
	cmds, mgr, eng, buf := newTestCommands(t, nil)
	eng.FailRun("boom")

	cmds.Execute("connect lan-party pw")
	assert.Equal(t, session.StateError, mgr.State().Connection)
	assert.Contains(t, buf.String(), "Connect failed")

	buf.Reset()
	cmds.Execute("clear")
	assert.Contains(t, buf.String(), "Error cleared")
	assert.Equal(t, session.StateDisconnected, mgr.State().Connection)

	buf.Reset()
	cmds.Execute("clear")
	assert.Contains(t, buf.String(), "No error to clear")
}

func TestCommands_DisconnectStopFailureIsWarning(t *testing.T) {
	cmds, mgr, eng, buf := newTestCommands(t, nil)
	cmds.Execute("connect lan-party pw --host")
	eng.FailStop("stuck")

	buf.Reset()
	cmds.Execute("leave")
	assert.Contains(t, buf.String(), "[warn]")
	assert.Equal(t, session.StateDisconnected, mgr.State().Connection)
}

func TestCommands_PeersEmpty(t *testing.T) {
	cmds, _, _, buf := newTestCommands(t, nil)
	cmds.Execute("peers")
	assert.Contains(t, buf.String(), "(no peers)")
}

func TestCommands_Diagnose(t *testing.T) {
	called := 0
	diagnose := func(ctx context.Context, onStep func(int, diagnostics.StepResult)) []diagnostics.StepResult {
		called++
		results := []diagnostics.StepResult{
			{Name: "Engine check", Status: diagnostics.StatusSuccess, Message: "ok"},
			{Name: "Port listening (7777)", Status: diagnostics.StatusFailed, Message: "refused"},
		}
		for i, r := range results {
			onStep(i, diagnostics.StepResult{Name: r.Name, Status: diagnostics.StatusRunning})
			onStep(i, r)
		}
		return results
	}
	cmds, _, _, buf := newTestCommands(t, diagnose)

	cmds.Execute("diagnose")
	out := buf.String()
	assert.Equal(t, 1, called)
	assert.Contains(t, out, "Engine check")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "1 check(s) failed")
	assert.NotContains(t, out, "RUNNING")
}

func TestCommands_DiagnoseRefusedWhileConnected(t *testing.T) {
	called := false
	diagnose := func(ctx context.Context, onStep func(int, diagnostics.StepResult)) []diagnostics.StepResult {
		called = true
		return nil
	}
	cmds, _, _, buf := newTestCommands(t, diagnose)
	cmds.Execute("connect lan-party pw --host")

	buf.Reset()
	cmds.Execute("diag")
	assert.False(t, called)
	assert.Contains(t, buf.String(), "Disconnect before running diagnostics")
}

func TestCommands_DiagnoseUnavailable(t *testing.T) {
	cmds, _, _, buf := newTestCommands(t, nil)
	cmds.Execute("diagnose")
	assert.Contains(t, buf.String(), "not available")
}

func TestCommands_ExitAndUnknown(t *testing.T) {
	cmds, _, _, buf := newTestCommands(t, nil)

	assert.True(t, cmds.Execute(""))
	assert.True(t, cmds.Execute("frobnicate"))
	assert.Contains(t, buf.String(), "Unknown command: frobnicate")
	assert.False(t, cmds.Execute("exit"))
	assert.False(t, cmds.Execute("QUIT"))
}
