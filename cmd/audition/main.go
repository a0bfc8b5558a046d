// ABOUTME: Entry point for the audition studio
// ABOUTME: Parses CLI flags, wires the studio and runs the server and TUI
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/audition/internal/config"
	"github.com/harperreed/audition/internal/discovery"
	"github.com/harperreed/audition/internal/events"
	"github.com/harperreed/audition/internal/export"
	"github.com/harperreed/audition/internal/server"
	"github.com/harperreed/audition/internal/studio"
	"github.com/harperreed/audition/internal/synth"
	"github.com/harperreed/audition/internal/ui"
	"github.com/harperreed/audition/internal/version"
	"github.com/harperreed/audition/pkg/audio"
	"github.com/harperreed/audition/pkg/audio/output"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	name := flag.String("name", cfg.Name, "Studio friendly name")
	logFile := flag.String("log-file", "audition.log", "Log file path")
	noTUI := flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	noMDNS := flag.Bool("no-mdns", !cfg.MDNS, "Disable mDNS advertisement")
	exportDir := flag.String("export-dir", cfg.ExportDir, "Directory for exported WAV files")
	load := flag.String("load", "", "File holding a base64 PCM payload to import at startup")
	tickMs := flag.Int("tick-ms", int(cfg.TickInterval/time.Millisecond), "Position update interval in milliseconds")
	voice := flag.String("voice", cfg.Voice, "Default voice for generated speech")
	volume := flag.Int("volume", 100, "Playback volume (0-100)")
	silent := flag.Bool("silent", false, "Run without a sound device")
	discover := flag.Bool("discover", false, "List studios on the local network and exit")
	flag.Parse()

	useTUI := !*noTUI && !*discover

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
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	if *discover {
		if err := listStudios(*name); err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		return
	}

	log.Printf("Starting %s %s: %s on port %d", version.Product, version.Version, *name, *port)
	log.Printf("Logging to: %s", *logFile)

	// Output device
	var device output.Device
	if *silent {
		device = output.NewSilent()
		log.Printf("Running without a sound device")
	} else {
		speaker := output.NewOto()
		format := audio.RemoteFormat
		if err := speaker.Init(format.SampleRate, format.Channels); err != nil {
			log.Printf("Sound device unavailable, running silent: %v", err)
			device = output.NewSilent()
		} else {
			speaker.SetVolume(*volume)
			device = speaker
		}
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Printf("Error closing output: %v", err)
		}
	}()

	// Speech generation is optional; import still works without a key
	var synthClient synth.Client
	if cfg.APIKey != "" {
		client, err := synth.NewHTTPClient(synth.HTTPConfig{
			BaseURL: cfg.SynthURL,
			Model:   cfg.SynthModel,
			APIKey:  cfg.APIKey,
		})
		if err != nil {
			log.Fatalf("Failed to create speech client: %v", err)
		}
		synthClient = client
	} else {
		log.Printf("GEMINI_API_KEY not set, speech generation disabled")
	}

	st, err := studio.New(studio.Config{
		Device:       device,
		Synth:        synthClient,
		Exports:      export.NewFileStore(*exportDir),
		Voice:        *voice,
		TickInterval: time.Duration(*tickMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("Failed to create studio: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("Error closing studio: %v", err)
		}
	}()

	if *load != "" {
		if err := loadPayload(st, *load); err != nil {
			log.Printf("Failed to load %s: %v", *load, err)
		}
	}

	// TUI setup
	quit := make(chan struct{}, 1)
	var tuiProg *tea.Program
	if useTUI {
		tuiProg = ui.Run(st, quit)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		tuiProg.Send(ui.TracksMsg(st.Tracks()))
		tuiProg.Send(ui.StatusMsg(st.Status()))
	}

	sub := st.Events().Subscribe()
	go forwardEvents(st, sub, tuiProg)

	srv := server.New(server.Config{
		Port:       *port,
		Name:       *name,
		EnableMDNS: !*noMDNS,
		Quit:       quit,
	}, st)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Printf("Server error: %v", err)
	}

	st.Events().Unsubscribe(sub)
	if tuiProg != nil {
		tuiProg.Quit()
	}

	log.Printf("Studio stopped")
}

// forwardEvents turns studio events into TUI messages, or logs them without a TUI
func forwardEvents(st *studio.Studio, sub <-chan events.Event, tuiProg *tea.Program) {
	for ev := range sub {
		if tuiProg == nil {
			switch ev.Type {
			case events.TypeState:
				log.Printf("Track %s: %s", ev.TrackID, ev.State)
			case events.TypeError:
				log.Printf("Error: %s", ev.Message)
			}
			continue
		}

		switch ev.Type {
		case events.TypeTracks:
			tuiProg.Send(ui.TracksMsg(st.Tracks()))
		case events.TypeError:
			tuiProg.Send(ui.ErrorMsg{Err: fmt.Errorf("%s", ev.Message)})
		default:
			tuiProg.Send(ui.StatusMsg(st.Status()))
		}
	}
}

// loadPayload imports a base64 PCM file as a track named after the file
func loadPayload(st *studio.Studio, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	track, err := st.Import(filepath.Base(path), string(data))
	if err != nil {
		return err
	}

	log.Printf("Loaded %s as track %s (%.2fs)", path, track.ID, track.Duration)
	return nil
}

// listStudios browses mDNS and prints every studio found
func listStudios(name string) error {
	disc := discovery.NewManager(discovery.Config{ServiceName: name})
	defer disc.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- disc.Browse(3 * time.Second)
	}()

	for {
		select {
		case found := <-disc.Studios():
			printStudio(found)
		case err := <-errCh:
			for {
				select {
				case found := <-disc.Studios():
					printStudio(found)
				default:
					return err
				}
			}
		}
	}
}

func printStudio(found *discovery.StudioInfo) {
	fmt.Printf("%s\t%s:%d\t%v\n", found.Name, found.Host, found.Port, found.Info)
}
