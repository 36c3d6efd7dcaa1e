// ABOUTME: Tests for the pause helper collaborator
// ABOUTME: Runs real commands to check exit status handling
package sink

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCommandPauserSuccess(t *testing.T) {
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}

	if err := NewCommandPauser(path).PauseOthers(DefaultPlayerName); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCommandPauserFailure(t *testing.T) {
	path, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}

	err = NewCommandPauser(path).PauseOthers(DefaultPlayerName)
	if err == nil {
		t.Fatal("expected error for non-zero exit status")
	}
	if !strings.Contains(err.Error(), DefaultPlayerName) {
		t.Errorf("expected player name in error, got %v", err)
	}
}

func TestCommandPauserPassesPlayerName(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	script := filepath.Join(dir, "pause-all")
	body := "#!/bin/sh\necho \"$1\" > " + out + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	if err := NewCommandPauser(script).PauseOthers("vollibrespot"); err != nil {
		t.Fatalf("PauseOthers failed: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read args: %v", err)
	}
	if strings.TrimSpace(string(got)) != "vollibrespot" {
		t.Errorf("expected player name argument, got %q", got)
	}
}

func TestCommandPauserMissing(t *testing.T) {
	p := NewCommandPauser(filepath.Join(t.TempDir(), "missing"))
	if err := p.PauseOthers(DefaultPlayerName); err == nil {
		t.Fatal("expected error for missing helper")
	}
}

func TestCommandPauserTimeout(t *testing.T) {
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	p := &CommandPauser{Path: path, Timeout: 50 * time.Millisecond}
	start := time.Now()
	// the player name doubles as the sleep duration
	if err := p.PauseOthers("5"); err == nil {
		t.Error("expected error for a helper killed by the timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected timeout to bound the helper, took %v", elapsed)
	}
}

func TestNopPauser(t *testing.T) {
	if err := (NopPauser{}).PauseOthers("anything"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
