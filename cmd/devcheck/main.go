// ABOUTME: Device check tool for a playback output
// ABOUTME: Opens the device, dumps negotiated parameters and plays a short tone
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Resonate-Protocol/alsasink/internal/app"
	"github.com/Resonate-Protocol/alsasink/pkg/audio/decode"
	"github.com/Resonate-Protocol/alsasink/pkg/audio/output"
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
)

var (
	device   = flag.String("device", sink.DefaultDevice, "Output device to check")
	backend  = flag.String("backend", output.BackendALSA, "Audio backend")
	resample = flag.Bool("resample", false, "Request rate resampling")
	duration = flag.Duration("duration", 2*time.Second, "Tone length, 0 to only open the device")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	fmt.Println("=== Output Device Check ===")
	fmt.Println("This check will:")
	fmt.Println("1. Open the device and negotiate parameters")
	fmt.Println("2. Dump the installed hardware and software parameters")
	fmt.Println("3. Play a 440Hz tone and report underruns")
	fmt.Println()

	sys, err := output.New(*backend)
	if err != nil {
		log.Fatalf("Backend error: %v", err)
	}

	s, err := sink.New(sys, *device, sink.WithPauser(sink.NopPauser{}))
	if err != nil {
		log.Fatalf("Sink error: %v", err)
	}

	cfg := sink.Config{Resample: *resample, DebugDump: true}
	if *duration <= 0 {
		if err := s.Start(cfg); err != nil {
			log.Fatalf("Open failed: %v", err)
		}
		printParams(s)
		if err := s.Stop(); err != nil {
			log.Fatalf("Stop failed: %v", err)
		}
		return
	}

	player := app.New(app.Config{Sink: cfg, Backend: *backend}, s, decode.NewTone(440, *duration))
	if err := player.Run(context.Background()); err != nil {
		log.Printf("Device check failed: %v", err)
		os.Exit(1)
	}
	printParams(s)

	stats := s.Stats()
	fmt.Printf("Played %d frames in %d writes, %d underruns\n", stats.Frames, stats.Writes, stats.Underruns)
	log.Printf("Device check complete")
}

func printParams(s *sink.Sink) {
	params, ok := s.Negotiated()
	if !ok {
		return
	}
	fmt.Printf("Device:   %s\n", s.Device())
	fmt.Printf("Session:  %s\n", s.Session())
	fmt.Printf("Format:   %s %s\n", params.Access, params.Format)
	fmt.Printf("Rate:     %d Hz, %d channels\n", params.Rate, params.Channels)
	fmt.Printf("Buffer:   %d frames (%.0fms), %d periods of %d\n", params.BufferSize, params.LatencyMs(), params.Periods, params.PeriodSize)
	fmt.Printf("Start at: %d frames, resample %v\n", params.StartThreshold, params.Resample)
}
