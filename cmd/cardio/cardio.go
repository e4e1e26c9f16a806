package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/cardio.report/internal/api"
	"github.com/banshee-data/cardio.report/internal/bridge"
	"github.com/banshee-data/cardio.report/internal/config"
	"github.com/banshee-data/cardio.report/internal/db"
	"github.com/banshee-data/cardio.report/internal/ecg"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with a synthesized device")
	listen     = flag.String("listen", ":8080", "Listen address")
	port       = flag.String("port", "/dev/ttyACM0", "Serial port to use (ignored in dev mode)")
	dbFile     = flag.String("db", "cardio.db", "Path to the sqlite database (empty disables beat persistence)")
	configPath = flag.String("config", "", "Path to a JSON tuning config (optional)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && *port == "" {
		log.Fatal("Serial port is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	mode, err := ecg.ParseTrackerMode(tuning.GetTrackerMode())
	if err != nil {
		log.Fatalf("invalid tracker mode: %v", err)
	}

	stream := ecg.NewStream(ecg.StreamConfig{
		Length:     tuning.GetStreamLength(),
		SampleRate: tuning.GetSampleRateHz(),
		Mode:       mode,
	})
	stream.SetFilters(ecg.FilterConfig{
		Notch:    tuning.GetNotch(),
		Lowpass:  tuning.GetLowpass(),
		Highpass: tuning.GetHighpass(),
		Adaptive: tuning.GetAdaptive(),
	})

	var device bridge.Devicer
	if *devMode {
		device = bridge.NewMockDevice()
		log.Print("dev mode: using synthesized device")
	} else {
		device, err = bridge.OpenSerialDevice(*port, bridge.PortOptions{
			BaudRate: tuning.GetSerialBaud(),
		}, tuning.GetSerialReadTimeout())
		if err != nil {
			log.Fatalf("failed to open serial device: %v", err)
		}
	}

	var database *db.DB
	var recorder bridge.BeatRecorder
	if *dbFile != "" {
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		if _, err := database.StartSession(""); err != nil {
			log.Fatalf("failed to start session: %v", err)
		}
		recorder = database
	}

	poller := bridge.NewPoller(device, stream, recorder, tuning.GetPollInterval())
	defer poller.Close()

	// Wait group for the poll loop and HTTP server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the poll loop to drive the device and the processing pipeline
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("poll loop failed: %v", err)
		}
		log.Print("poll loop terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(poller, stream, database, tuning.GetPlotWindow()).ServeMux()
		if database != nil {
			database.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()

	if database != nil {
		if err := database.EndSession(); err != nil {
			log.Printf("failed to end session: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}
