package version

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	oldV, oldB, oldC := Version, BuildTime, GitCommit
	defer func() { Version, BuildTime, GitCommit = oldV, oldB, oldC }()

	Version, BuildTime, GitCommit = "1.2.0", "2026-01-02", "0123456789abcdef"
	if got, want := GetVersion(), "1.2.0 (built 2026-01-02) commit 01234567"; got != want {
		t.Errorf("GetVersion() = %q, want %q", got, want)
	}

	Version, BuildTime, GitCommit = "dev", "", "abc"
	if got := GetVersion(); got != "dev" {
		t.Errorf("GetVersion() = %q, want dev", got)
	}
}

func TestPlatform(t *testing.T) {
	if !strings.Contains(Platform(), "/") {
		t.Errorf("Platform() = %q", Platform())
	}
}
