package cli

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"lanlink-core/internal/overlay/status"
	"lanlink-core/internal/session"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("NAME", "ADDR")
	table.AddRow("host", "10.126.126.1")
	table.AddRow("guest_0000abcd", "10.126.126.2")
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME            ") {
		t.Errorf("header not padded to widest cell: %q", lines[0])
	}
	if !strings.Contains(lines[3], "guest_0000abcd  10.126.126.2") {
		t.Errorf("unexpected row: %q", lines[3])
	}
}

func TestOutput_Peers(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutputTo(&buf, true)
	out.Peers([]status.PeerInfo{
		{ID: "1", Hostname: "host", VirtualAddress: "10.126.126.1", LatencyMs: 12},
		{ID: "2", Hostname: "guest_1", VirtualAddress: ""},
	})

	text := buf.String()
	for _, want := range []string{"HOSTNAME", "10.126.126.1", "12ms", "guest_1"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestOutput_State(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutputTo(&buf, true)
	out.State(session.State{Connection: session.StateError, ErrorMessage: "engine died"})

	text := buf.String()
	if !strings.Contains(text, "ERROR") || !strings.Contains(text, "engine died") {
		t.Errorf("unexpected state output:\n%s", text)
	}
	if strings.Contains(text, "Address") {
		t.Errorf("empty address should be omitted:\n%s", text)
	}
}

func TestFilterCommands(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		expected []string
	}{
		{name: "single letter", prefix: "p", expected: []string{"peers"}},
		{name: "shared prefix", prefix: "di", expected: []string{"diagnose", "disconnect"}},
		{name: "case insensitive", prefix: "HELP", expected: []string{"help"}},
		{name: "no match", prefix: "xyz", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FilterCommands(tt.prefix)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
