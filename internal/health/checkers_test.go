package health

import (
	"context"
	"testing"

	"lanlink-core/internal/engine/enginetest"
	"lanlink-core/internal/overlay/status"
	"lanlink-core/internal/session"
)

type fixedState session.State

func (f fixedState) State() session.State { return session.State(f) }

type fixedTun int

func (f fixedTun) TunFd() (int, bool) { return int(f), f >= 0 }

func TestEngineHealthChecker(t *testing.T) {
	h, err := NewEngineHealthChecker(enginetest.New()).Check(context.Background())
	if err != nil || h.Status != ComponentStatusHealthy {
		t.Errorf("expected healthy engine, got %+v err=%v", h, err)
	}

	h, _ = NewEngineHealthChecker(enginetest.NewUnavailable("libeasytier_ffi.so not found")).Check(context.Background())
	if h.Status != ComponentStatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", h.Status)
	}
	if h.Message != "libeasytier_ffi.so not found" {
		t.Errorf("expected load error as message, got %q", h.Message)
	}

	h, _ = NewEngineHealthChecker(nil).Check(context.Background())
	if h.Status != ComponentStatusUnhealthy {
		t.Errorf("nil engine should be unhealthy, got %s", h.Status)
	}
}

func TestSessionHealthChecker(t *testing.T) {
	tests := []struct {
		name    string
		state   session.State
		status  ComponentStatus
		message string
	}{
		{
			name:    "disconnected",
			state:   session.State{Connection: session.StateDisconnected},
			status:  ComponentStatusHealthy,
			message: "DISCONNECTED",
		},
		{
			name: "connected",
			state: session.State{Connection: session.StateConnected, Peers: []status.PeerInfo{
				{ID: "1", Hostname: "host"},
			}},
			status:  ComponentStatusHealthy,
			message: "CONNECTED, 1 peer(s)",
		},
		{
			name:    "error",
			state:   session.State{Connection: session.StateError, ErrorMessage: "network instance stopped"},
			status:  ComponentStatusDegraded,
			message: "network instance stopped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewSessionHealthChecker(fixedState(tt.state)).Check(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, h.Status)
			}
			if h.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, h.Message)
			}
		})
	}
}

func TestTunHealthChecker(t *testing.T) {
	connected := fixedState(session.State{Connection: session.StateConnected})
	idle := fixedState(session.State{Connection: session.StateDisconnected})

	h, _ := NewTunHealthChecker(fixedTun(7), connected).Check(context.Background())
	if h.Status != ComponentStatusHealthy || h.Message != "fd 7" {
		t.Errorf("unexpected result with device: %+v", h)
	}

	h, _ = NewTunHealthChecker(fixedTun(-1), idle).Check(context.Background())
	if h.Status != ComponentStatusHealthy {
		t.Errorf("idle session without device should be healthy, got %s", h.Status)
	}

	h, _ = NewTunHealthChecker(fixedTun(-1), connected).Check(context.Background())
	if h.Status != ComponentStatusDegraded {
		t.Errorf("active session without device should be degraded, got %s", h.Status)
	}
}
