// ABOUTME: Coordination with other playback clients
// ABOUTME: Runs an external helper that asks competing players to release the device
package sink

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultPauseCommand is the helper that pauses every other known player
const DefaultPauseCommand = "/opt/hifiberry/bin/pause-all"

// Pauser asks other playback clients to release the audio device
type Pauser interface {
	PauseOthers(player string) error
}

// CommandPauser runs an external command with the player name as its only argument
type CommandPauser struct {
	Path string

	// Timeout bounds the helper run time; zero waits for it to exit
	Timeout time.Duration
}

// NewCommandPauser creates a pauser for the helper at path
func NewCommandPauser(path string) *CommandPauser {
	return &CommandPauser{Path: path}
}

// PauseOthers runs the helper and fails on a non-zero exit status
func (p *CommandPauser) PauseOthers(player string) error {
	ctx := context.Background()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, player)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", p.Path, player, err, msg)
		}
		return fmt.Errorf("%s %s: %w", p.Path, player, err)
	}
	return nil
}

// NopPauser does nothing
type NopPauser struct{}

func (NopPauser) PauseOthers(string) error { return nil }
