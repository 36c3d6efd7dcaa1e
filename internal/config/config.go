// ABOUTME: Process configuration from environment and optional .env file
// ABOUTME: Builds the sink options once at startup
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Resonate-Protocol/alsasink/internal/version"
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRateResample = "LIBRESPOT_RATE_RESAMPLE"
	EnvDebug        = "LIBRESPOT_DEBUG"
	EnvPauseCommand = "ALSASINK_PAUSE_COMMAND"
	EnvBackend      = "ALSASINK_BACKEND"
	EnvDevice       = "ALSASINK_DEVICE"
)

// DefaultEnvFile is read when present
const DefaultEnvFile = ".env"

// pauseTimeout keeps a hung helper from blocking Start forever
const pauseTimeout = 5 * time.Second

// Config holds everything read from the environment
type Config struct {
	Sink sink.Config

	// PauseCommand is run before each Start; empty disables it
	PauseCommand string

	// PlayerName is passed to the pause command
	PlayerName string

	// Backend and Device are defaults for the matching CLI flags
	Backend string
	Device  string
}

// Load reads envFile into the environment, without overriding variables
// already set, then builds the Config. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Sink: sink.Config{
			Resample:  isSet(EnvRateResample),
			DebugDump: isSet(EnvDebug),
		},
		PauseCommand: sink.DefaultPauseCommand,
		PlayerName:   version.PlayerName,
		Backend:      os.Getenv(EnvBackend),
		Device:       os.Getenv(EnvDevice),
	}

	// Set but empty disables the helper
	if cmd, ok := os.LookupEnv(EnvPauseCommand); ok {
		cfg.PauseCommand = cmd
	}
	return cfg, nil
}

// isSet reports presence only; LIBRESPOT_DEBUG=0 still enables debugging
func isSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

// Pauser returns the collaborator matching PauseCommand
func (c *Config) Pauser() sink.Pauser {
	if c.PauseCommand == "" {
		return sink.NopPauser{}
	}
	p := sink.NewCommandPauser(c.PauseCommand)
	p.Timeout = pauseTimeout
	return p
}
