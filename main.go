// ABOUTME: Entry point for the alsasink audio player
// ABOUTME: Parses CLI flags, lists devices or plays a source through the sink
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/alsasink/internal/app"
	"github.com/Resonate-Protocol/alsasink/internal/config"
	"github.com/Resonate-Protocol/alsasink/internal/ui"
	"github.com/Resonate-Protocol/alsasink/internal/version"
	"github.com/Resonate-Protocol/alsasink/pkg/audio/output"
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	device     = flag.String("device", "", "Output device, \"?\" lists devices (default: $ALSASINK_DEVICE or \"default\")")
	backend    = flag.String("backend", "", "Audio backend: "+strings.Join(output.Backends, ", ")+" (default: $ALSASINK_BACKEND or alsa)")
	source     = flag.String("file", app.SourceStdin, "Audio file or URL to play, \"-\" for raw PCM on stdin, empty for a test tone")
	toneFreq   = flag.Float64("tone-freq", 440, "Test tone frequency in Hz")
	toneLength = flag.Duration("tone-duration", 5*time.Second, "Test tone length, 0 for endless")
	envFile    = flag.String("env", config.DefaultEnvFile, "Environment file to load")
	logFile    = flag.String("log-file", "alsasink.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *device == "" {
		*device = cfg.Device
	}
	if *backend == "" {
		*backend = cfg.Backend
	}

	sys, err := output.New(*backend)
	if err != nil {
		log.Fatalf("Failed to select audio backend: %v", err)
	}
	if closer, ok := sys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	s, err := sink.New(sys, *device,
		sink.WithPauser(cfg.Pauser()),
		sink.WithPlayerName(cfg.PlayerName),
	)
	if errors.Is(err, sink.ErrListRequested) {
		listDevices(sys)
		return
	}
	if err != nil {
		log.Fatalf("Failed to create sink: %v", err)
	}

	// Reading PCM from stdin leaves the terminal to the data, so no TUI
	useTUI := !*noTUI && *source != app.SourceStdin

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to stderr and file, stdout may carry audio
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	log.Printf("Starting %s on %s (backend %s)", version.String(), s.Device(), backendName(*backend))
	if cfg.Sink.Resample {
		log.Printf("Rate resampling requested")
	}

	playerCfg := app.Config{
		Sink:          cfg.Sink,
		Backend:       backendName(*backend),
		Source:        *source,
		ToneFrequency: *toneFreq,
		ToneDuration:  *toneLength,
	}
	dec, err := app.OpenSource(playerCfg)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}

	// TUI setup
	var tuiProg *tea.Program
	var ctrl *ui.Control

	if useTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(s.Device(), playerCfg.Backend, ctrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	player := app.New(playerCfg, s, dec)
	player.OnStatus(func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	})

	// Handle shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if ctrl != nil {
		go func() {
			select {
			case <-ctrl.Quit:
				log.Printf("Received quit signal from TUI")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	runErr := player.Run(ctx)
	if runErr != nil {
		log.Printf("Error: playback failed: %v", runErr)
	}

	if tuiProg != nil {
		// Leave the final state on screen until the user quits
		if ctx.Err() == nil {
			select {
			case <-ctrl.Quit:
			case <-ctx.Done():
			}
		}
		tuiProg.Quit()
	}

	log.Printf("Player stopped")
	if runErr != nil {
		os.Exit(1)
	}
}

// listDevices prints the playback outputs to stdout
func listDevices(sys sink.System) {
	fmt.Println("Listing available alsa outputs")
	outputs, err := sink.ListOutputs(sys)
	if err != nil {
		log.Fatalf("Failed to list devices: %v", err)
	}
	if err := sink.PrintOutputs(os.Stdout, outputs); err != nil {
		log.Fatalf("Failed to print devices: %v", err)
	}
}

func backendName(name string) string {
	if name == "" {
		return output.BackendALSA
	}
	return name
}
